package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/platform/ctxutil"
)

type stubHandler struct{ jobType string }

func (s stubHandler) Type() string           { return s.jobType }
func (s stubHandler) Timeout() time.Duration { return 0 }
func (s stubHandler) Run(*Context) error     { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubHandler{"lesson_generate"}))
	require.NoError(t, r.Register(stubHandler{"course_research"}))
	assert.ErrorIs(t, r.Register(stubHandler{"lesson_generate"}), ErrDuplicateHandler)
	assert.ErrorIs(t, r.Register(stubHandler{""}), ErrInvalidHandler)
	assert.ErrorIs(t, r.Register(nil), ErrInvalidHandler)

	_, ok := r.Get("course_research")
	assert.True(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"course_research", "lesson_generate"}, r.Types())
}

func TestContextCarriesOrigin(t *testing.T) {
	lessonID := uuid.New()
	user := uuid.New()
	reqCtx := ctxutil.WithRequest(context.Background(), &ctxutil.Request{TraceID: "t-1", RequestID: "r-1", UserID: user})
	payload := LessonPayload(reqCtx, lessonID)

	jc := NewContext(context.Background(), "lesson_generate", payload, nil)
	payload[KeyLessonID] = "mutated"

	got, ok := jc.PayloadUUID(KeyLessonID)
	require.True(t, ok)
	assert.Equal(t, lessonID, got)
	_, ok = jc.PayloadUUID(KeyCourseID)
	assert.False(t, ok)

	origin := ctxutil.FromContext(jc.Ctx)
	require.NotNil(t, origin)
	assert.Equal(t, "t-1", origin.TraceID)
	assert.Equal(t, "r-1", origin.RequestID)
	assert.Equal(t, user, origin.UserID)
}

func TestContextWithoutOrigin(t *testing.T) {
	jc := NewContext(context.Background(), "course_research", CoursePayload(context.Background(), uuid.New()), nil)
	assert.Nil(t, ctxutil.FromContext(jc.Ctx))
	_, ok := jc.PayloadUUID(KeyCourseID)
	assert.True(t, ok)
}

func TestPayloadUUIDRejectsGarbage(t *testing.T) {
	jc := NewContext(context.Background(), "x", map[string]any{"a": "nope", "b": uuid.Nil.String(), "c": uuid.New(), "d": uuid.Nil}, nil)
	for key, want := range map[string]bool{"a": false, "b": false, "c": true, "d": false, "missing": false} {
		_, ok := jc.PayloadUUID(key)
		assert.Equal(t, want, ok, key)
	}
}
