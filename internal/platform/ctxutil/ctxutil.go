package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestKey struct{}

// Request carries the identifiers one API call hands to everything it touches,
// including background runs it spawns.
type Request struct {
	RequestID string
	TraceID   string
	UserID    uuid.UUID
}

func WithRequest(ctx context.Context, r *Request) context.Context {
	return context.WithValue(Default(ctx), requestKey{}, r)
}

// FromContext returns nil when no request was attached.
func FromContext(ctx context.Context) *Request {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(requestKey{}).(*Request)
	return r
}

// UserID returns uuid.Nil for unauthenticated contexts.
func UserID(ctx context.Context) uuid.UUID {
	if r := FromContext(ctx); r != nil {
		return r.UserID
	}
	return uuid.Nil
}

func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
