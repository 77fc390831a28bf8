package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type Decision string

const (
	Permitted        Decision = "permitted"
	InFlight         Decision = "in_flight"
	AlreadyGenerated Decision = "already_generated"
)

// Ticket proves a caller won the pending -> generating transition.
type Ticket struct {
	LessonID uuid.UUID
	Token    uuid.UUID
}

type LessonGate struct {
	lessons repos.LessonRepo
	log     *logger.Logger
}

func NewLessonGate(lessons repos.LessonRepo, baseLog *logger.Logger) *LessonGate {
	return &LessonGate{lessons: lessons, log: baseLog.With("module", "LessonGate")}
}

// Check is the cheap first read. Only Permitted lessons are worth claiming.
func (g *LessonGate) Check(lesson *types.Lesson) Decision {
	if lesson == nil {
		return AlreadyGenerated
	}
	switch lesson.Status {
	case types.LessonStatusReady:
		return AlreadyGenerated
	case types.LessonStatusGenerating:
		return InFlight
	default:
		return Permitted
	}
}

// Claim moves the lesson from pending to generating. A nil ticket means another
// attempt holds it, it is already generated, or the row is gone.
func (g *LessonGate) Claim(ctx context.Context, lessonID uuid.UUID) (*Ticket, error) {
	token := uuid.New()
	now := time.Now().UTC()
	ok, err := g.lessons.CompareAndSet(dbctx.New(ctx), lessonID,
		[]types.LessonStatus{types.LessonStatusPending}, nil,
		map[string]interface{}{
			"status":                types.LessonStatusGenerating,
			"generation_token":      token,
			"generation_started_at": now,
		})
	if err != nil {
		return nil, fmt.Errorf("claim lesson %s: %w", lessonID, err)
	}
	if !ok {
		g.log.Debug("Lesson claim lost", "lesson_id", lessonID)
		return nil, nil
	}
	return &Ticket{LessonID: lessonID, Token: token}, nil
}

// Commit is the authoritative re-check and write. It stores the content only if the
// ticket still owns the lesson; false means the result was discarded.
func (g *LessonGate) Commit(ctx context.Context, t Ticket, content string, citations datatypes.JSON) (bool, error) {
	now := time.Now().UTC()
	var cites interface{}
	if len(citations) > 0 {
		cites = citations
	}
	ok, err := g.lessons.CompareAndSet(dbctx.New(ctx), t.LessonID,
		[]types.LessonStatus{types.LessonStatusGenerating}, &t.Token,
		map[string]interface{}{
			"status":                types.LessonStatusReady,
			"content":               content,
			"citations":             cites,
			"generated_at":          now,
			"generation_token":      nil,
			"generation_started_at": nil,
			"last_error":            "",
		})
	if err != nil {
		return false, fmt.Errorf("commit lesson %s: %w", t.LessonID, err)
	}
	if !ok {
		g.log.Debug("Discarding stale lesson result", "lesson_id", t.LessonID)
	}
	return ok, nil
}

// Release hands the lesson back to pending after a failed attempt. Content is untouched.
func (g *LessonGate) Release(ctx context.Context, t Ticket, cause error) error {
	msg := ""
	if cause != nil {
		msg = truncate(cause.Error(), 1000)
	}
	ok, err := g.lessons.CompareAndSet(dbctx.New(ctx), t.LessonID,
		[]types.LessonStatus{types.LessonStatusGenerating}, &t.Token,
		map[string]interface{}{
			"status":                types.LessonStatusPending,
			"generation_token":      nil,
			"generation_started_at": nil,
			"last_error":            msg,
		})
	if err != nil {
		return fmt.Errorf("release lesson %s: %w", t.LessonID, err)
	}
	if !ok {
		g.log.Debug("Lesson release found no owned row", "lesson_id", t.LessonID)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
