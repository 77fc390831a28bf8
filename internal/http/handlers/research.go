package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/microlearn-backend/internal/http/response"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/services"
)

type ResearchHandler struct {
	log *logger.Logger
	svc services.ResearchService
}

func NewResearchHandler(log *logger.Logger, svc services.ResearchService) *ResearchHandler {
	return &ResearchHandler{log: log.With("handler", "ResearchHandler"), svc: svc}
}

// GET /api/courses/:id/research
func (h *ResearchHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	row, err := h.svc.Get(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"research": row})
}

// POST /api/courses/:id/research/retry
func (h *ResearchHandler) Retry(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	row, err := h.svc.Retry(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"research": row})
}
