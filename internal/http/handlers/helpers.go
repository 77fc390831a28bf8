package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/microlearn-backend/internal/http/response"
	"github.com/yungbote/microlearn-backend/internal/platform/ctxutil"
)

// requireUser returns the authenticated user or writes a 401.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses the :id route param or writes a 400.
func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid "+what+" id"))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes and validates the body or writes a 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return false
	}
	return true
}
