package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

// Body of every non-2xx response: {"error":{"message","code","retryable"}}.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// Retryable marks provider failures the client may simply repeat.
	Retryable bool `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

var errInternal = errors.New("internal server error")

func RespondError(c *gin.Context, status int, code string, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	c.JSON(status, ErrorEnvelope{Error: ErrorBody{
		Message:   err.Error(),
		Code:      code,
		Retryable: status == http.StatusBadGateway,
	}})
}

// RespondErr maps err through the apierr taxonomy and records it on the gin context
// for the request log. Unexpected 5xx errors answer with a generic message.
func RespondErr(c *gin.Context, err error) {
	_ = c.Error(err)
	ae := apierr.From(err)
	if ae == nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", errInternal)
		return
	}
	msg := error(ae)
	if ae.Status >= http.StatusInternalServerError && ae.Status != http.StatusBadGateway {
		msg = errInternal
	}
	RespondError(c, ae.Status, ae.Code, msg)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
