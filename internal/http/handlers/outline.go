package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/microlearn-backend/internal/http/response"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/prompts"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/services"
)

type OutlineHandler struct {
	log *logger.Logger
	svc services.OutlineService
}

func NewOutlineHandler(log *logger.Logger, svc services.OutlineService) *OutlineHandler {
	return &OutlineHandler{log: log.With("handler", "OutlineHandler"), svc: svc}
}

type previewRequest struct {
	Topic           string             `json:"topic" binding:"required,max=200"`
	Feedback        string             `json:"feedback" binding:"max=2000"`
	PreviousOutline *outline.Outline   `json:"previous_outline"`
	Transcript      []prompts.Exchange `json:"transcript" binding:"max=20"`
	Answer          string             `json:"answer" binding:"max=2000"`
}

// POST /api/outlines/preview
func (h *OutlineHandler) Preview(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	var req previewRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.svc.Preview(c.Request.Context(), services.PreviewInput{
		Topic:           req.Topic,
		Transcript:      req.Transcript,
		Answer:          req.Answer,
		PreviousOutline: req.PreviousOutline,
		Feedback:        req.Feedback,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, reply)
}
