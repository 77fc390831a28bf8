package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/microlearn-backend/internal/http/response"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/services"
)

type LessonHandler struct {
	log *logger.Logger
	svc services.LessonService
}

func NewLessonHandler(log *logger.Logger, svc services.LessonService) *LessonHandler {
	return &LessonHandler{log: log.With("handler", "LessonHandler"), svc: svc}
}

// GET /api/lessons/:id
func (h *LessonHandler) GetLesson(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson")
	if !ok {
		return
	}
	view, err := h.svc.GetLesson(c.Request.Context(), userID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/lessons/:id/complete
func (h *LessonHandler) Complete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson")
	if !ok {
		return
	}
	res, err := h.svc.Complete(c.Request.Context(), userID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

type feedbackRequest struct {
	Feedback string `json:"feedback" binding:"required,max=2000"`
}

// POST /api/lessons/:id/feedback
func (h *LessonHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson")
	if !ok {
		return
	}
	var req feedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	fb, err := h.svc.SubmitFeedback(c.Request.Context(), userID, lessonID, req.Feedback)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"feedback": fb})
}

// GET /api/lessons/:id/expansions
func (h *LessonHandler) ListExpansions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson")
	if !ok {
		return
	}
	list, err := h.svc.ListExpansions(c.Request.Context(), userID, lessonID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"expansions": list})
}

type expansionRequest struct {
	Topic string `json:"topic" binding:"required,max=200"`
}

// POST /api/lessons/:id/expansions
func (h *LessonHandler) CreateExpansion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	lessonID, ok := pathID(c, "lesson")
	if !ok {
		return
	}
	var req expansionRequest
	if !bindJSON(c, &req) {
		return
	}
	exp, err := h.svc.CreateExpansion(c.Request.Context(), userID, lessonID, req.Topic)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"expansion": exp})
}
