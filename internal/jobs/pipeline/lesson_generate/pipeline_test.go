package lesson_generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

type fakeAI struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	calls   int
	prompts []string
	hook    func()
}

func (f *fakeAI) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recordingBus) Publish(_ context.Context, ev bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingBus) Close() error { return nil }

type fixture struct {
	db      *gorm.DB
	lessons repos.LessonRepo
	ai      *fakeAI
	bus     *recordingBus
	p       *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	lessons := repos.NewLessonRepo(db, log)
	f := &fixture{
		db:      db,
		lessons: lessons,
		ai:      &fakeAI{text: "Birds are everywhere."},
		bus:     &recordingBus{},
	}
	f.p = New(log, lessons,
		repos.NewCourseRepo(db, log),
		repos.NewLessonFeedbackRepo(db, log),
		repos.NewCourseResearchRepo(db, log),
		gate.NewLessonGate(lessons, log),
		f.ai, f.bus, observability.NewMetrics(), time.Minute)
	return f
}

func (f *fixture) run(t *testing.T, lessonID uuid.UUID) error {
	t.Helper()
	ctx := context.Background()
	return f.p.Run(jobrt.NewContext(ctx, JobType, jobrt.LessonPayload(ctx, lessonID), logger.Nop()))
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *types.Lesson {
	t.Helper()
	l, err := f.lessons.GetByID(dbctx.New(context.Background()), id)
	require.NoError(t, err)
	return l
}

func TestRunGeneratesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, user, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"fb-1", "fb-2", "fb-3", "fb-4", "fb-5"} {
		testutil.SeedFeedback(t, ctx, f.db, user, lessons[0], text, base.Add(time.Duration(i)*time.Minute))
	}

	require.NoError(t, f.run(t, lessons[1].ID))

	got := f.reload(t, lessons[1].ID)
	assert.Equal(t, types.LessonStatusReady, got.Status)
	assert.Equal(t, "Birds are everywhere.", got.Content)
	assert.Nil(t, got.CitationMap())

	require.Len(t, f.ai.prompts, 1)
	prompt := f.ai.prompts[0]
	assert.Contains(t, prompt, "session 2 of 2")
	assert.NotContains(t, prompt, "fb-2")
	assert.Contains(t, prompt, "fb-3")
	assert.Contains(t, prompt, "fb-5")

	require.Len(t, f.bus.events, 1)
	assert.Equal(t, bus.EventLessonReady, f.bus.events[0].Event)
	assert.Equal(t, user.String(), f.bus.events[0].UserID)
}

func TestRunReconcilesResearchCitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	testutil.SeedResearch(t, ctx, f.db, course.ID, types.ResearchStatusCompleted, []types.ResearchCitation{
		{Index: 1, Title: "A", URL: "https://a.example"},
		{Index: 2, Title: "B", URL: "https://b.example"},
		{Index: 3, Title: "C", URL: "https://c.example"},
	})
	f.ai.text = "Robins sing at dawn [1]. Crows are clever [3][9]. Again [1]."

	require.NoError(t, f.run(t, lesson.ID))

	got := f.reload(t, lesson.ID)
	assert.Equal(t, map[int]string{1: "https://a.example", 3: "https://c.example"}, got.CitationMap())
	assert.Contains(t, f.ai.prompts[0], "[1] A")
}

func TestRunProviderFailureLeavesLessonRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	f.ai.err = errors.New("upstream 503")

	err := f.run(t, lesson.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrProvider)

	got := f.reload(t, lesson.ID)
	assert.Equal(t, types.LessonStatusPending, got.Status)
	assert.Empty(t, got.Content)
	assert.Contains(t, got.LastError, "upstream 503")
	assert.Empty(t, f.bus.events)

	f.ai.err = nil
	require.NoError(t, f.run(t, lesson.ID))
	assert.Equal(t, types.LessonStatusReady, f.reload(t, lesson.ID).Status)
}

func TestRunEmptyOutputIsAFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	f.ai.text = "   "

	assert.ErrorIs(t, f.run(t, lesson.ID), apierr.ErrProvider)
	assert.Equal(t, types.LessonStatusPending, f.reload(t, lesson.ID).Status)
}

func TestRunSkipsReadyAndMissingLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	require.NoError(t, f.run(t, lesson.ID))
	require.Equal(t, 1, f.ai.calls)

	require.NoError(t, f.run(t, lesson.ID))
	require.NoError(t, f.run(t, uuid.New()))
	assert.Equal(t, 1, f.ai.calls)

	err := f.p.Run(jobrt.NewContext(ctx, JobType, map[string]any{}, logger.Nop()))
	assert.Error(t, err)
}

func TestRunConcurrentTriggersWriteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	f.ai.delay = 20 * time.Millisecond

	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error { return f.run(t, lesson.ID) })
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 1, f.ai.calls)
	got := f.reload(t, lesson.ID)
	assert.Equal(t, types.LessonStatusReady, got.Status)
	assert.Equal(t, "Birds are everywhere.", got.Content)
	assert.Len(t, f.bus.events, 1)
}

func TestRunToleratesCourseDeletedMidGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, f.db, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	f.ai.hook = func() {
		_ = f.lessons.FullDeleteByCourseID(dbctx.New(ctx), course.ID)
	}

	assert.NoError(t, f.run(t, lesson.ID))
	assert.Nil(t, f.reload(t, lesson.ID))
	assert.Empty(t, f.bus.events)
}
