package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/microlearn-backend/internal/platform/ctxutil"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

// Payload keys. The origin keys carry the spawning request's ids across the
// detach so a background run logs under the same request and trace.
const (
	KeyLessonID        = "lesson_id"
	KeyCourseID        = "course_id"
	keyOriginRequestID = "origin_request_id"
	keyOriginTraceID   = "origin_trace_id"
	keyOriginUserID    = "origin_user_id"
)

// Context is what a handler gets for one run. Ctx is already detached from the
// spawning request and bounded by the handler timeout.
type Context struct {
	Ctx     context.Context
	JobType string
	Log     *logger.Logger

	payload map[string]any
}

// NewContext snapshots payload, so the spawner mutating its map afterwards is never observed.
func NewContext(ctx context.Context, jobType string, payload map[string]any, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	snapshot := make(map[string]any, len(payload))
	for k, v := range payload {
		snapshot[k] = v
	}
	jc := &Context{Ctx: ctxutil.Default(ctx), JobType: jobType, payload: snapshot}

	origin := jc.origin()
	fields := []interface{}{"job_type", jobType}
	if origin != nil {
		jc.Ctx = ctxutil.WithRequest(jc.Ctx, origin)
		if origin.RequestID != "" {
			fields = append(fields, "request_id", origin.RequestID)
		}
		if origin.TraceID != "" {
			fields = append(fields, "trace_id", origin.TraceID)
		}
	}
	jc.Log = log.With(fields...)
	return jc
}

func (c *Context) origin() *ctxutil.Request {
	reqID, _ := c.payload[keyOriginRequestID].(string)
	traceID, _ := c.payload[keyOriginTraceID].(string)
	userID, _ := c.PayloadUUID(keyOriginUserID)
	if reqID == "" && traceID == "" && userID == uuid.Nil {
		return nil
	}
	return &ctxutil.Request{RequestID: reqID, TraceID: traceID, UserID: userID}
}

// PayloadUUID returns (uuid.Nil, false) when the key is missing, malformed or the nil uuid.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	var id uuid.UUID
	switch v := c.payload[key].(type) {
	case nil:
		return uuid.Nil, false
	case uuid.UUID:
		id = v
	default:
		parsed, err := uuid.Parse(fmt.Sprint(v))
		if err != nil {
			return uuid.Nil, false
		}
		id = parsed
	}
	return id, id != uuid.Nil
}

func LessonPayload(ctx context.Context, lessonID uuid.UUID) map[string]any {
	return originPayload(ctx, KeyLessonID, lessonID)
}

func CoursePayload(ctx context.Context, courseID uuid.UUID) map[string]any {
	return originPayload(ctx, KeyCourseID, courseID)
}

func originPayload(ctx context.Context, key string, id uuid.UUID) map[string]any {
	m := map[string]any{key: id.String()}
	req := ctxutil.FromContext(ctx)
	if req == nil {
		return m
	}
	if req.RequestID != "" {
		m[keyOriginRequestID] = req.RequestID
	}
	if req.TraceID != "" {
		m[keyOriginTraceID] = req.TraceID
	}
	if req.UserID != uuid.Nil {
		m[keyOriginUserID] = req.UserID.String()
	}
	return m
}
