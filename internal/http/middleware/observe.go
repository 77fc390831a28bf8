package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/ctxutil"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"
)

/*
Observe is the single per-request instrumentation pass.
	- Request and trace ids come from the caller's headers, then the active otel span, then a fresh uuid.
	- Both ids are echoed back and stored on the request context so spawned jobs inherit them.
	- One log line per request: Error for 5xx, Warn for 4xx, Debug otherwise.
	- Route-template metrics, so /lessons/<uuid> never explodes label cardinality.
*/
func Observe(log *logger.Logger, m *observability.Metrics) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.APIInflightInc()
		defer m.APIInflightDec()

		req := &ctxutil.Request{
			RequestID: firstNonEmpty(c.GetHeader(HeaderRequestID), uuid.NewString()),
			TraceID:   firstNonEmpty(c.GetHeader(HeaderTraceID), spanTraceID(c), uuid.NewString()),
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequest(c.Request.Context(), req))
		c.Header(HeaderRequestID, req.RequestID)
		c.Header(HeaderTraceID, req.TraceID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		m.ObserveAPI(c.Request.Method, route, status, dur)

		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", dur.Milliseconds(),
			"request_id", req.RequestID,
			"trace_id", req.TraceID,
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "entity_id", id)
		}
		if req.UserID != uuid.Nil {
			fields = append(fields, "user_id", req.UserID.String())
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); status >= 400 && len(errs) > 0 {
			fields = append(fields, "error", errs.Last().Error())
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}

func spanTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
