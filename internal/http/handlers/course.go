package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/microlearn-backend/internal/http/response"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

type buildCourseRequest struct {
	Topic   string          `json:"topic" binding:"max=200"`
	Outline outline.Outline `json:"outline"`
}

// POST /api/courses
func (h *CourseHandler) Build(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req buildCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	built, err := h.courseService.Build(c.Request.Context(), userID, services.BuildCourseInput{
		Topic:   req.Topic,
		Outline: req.Outline,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, built)
}

// GET /api/courses?archived=bool
func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	archived := false
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation_error", errors.New("archived must be a boolean"))
			return
		}
		archived = v
	}
	courses, err := h.courseService.List(c.Request.Context(), userID, archived)
	if err != nil {
		h.log.Error("List courses failed", "error", err, "user_id", userID)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	detail, err := h.courseService.Get(c.Request.Context(), userID, courseID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, detail)
}

// POST /api/courses/:id/archive
func (h *CourseHandler) Archive(c *gin.Context) { h.setArchived(c, true) }

// POST /api/courses/:id/unarchive
func (h *CourseHandler) Unarchive(c *gin.Context) { h.setArchived(c, false) }

func (h *CourseHandler) setArchived(c *gin.Context, archived bool) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	course, err := h.courseService.SetArchived(c.Request.Context(), userID, courseID, archived)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /api/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	courseID, ok := pathID(c, "course")
	if !ok {
		return
	}
	if err := h.courseService.Delete(c.Request.Context(), userID, courseID); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondNoContent(c)
}
