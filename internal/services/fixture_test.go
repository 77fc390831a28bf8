package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type spawnCall struct {
	jobType string
	payload map[string]any
}

type fakeSpawner struct {
	mu    sync.Mutex
	calls []spawnCall
}

func (f *fakeSpawner) Spawn(jobType string, payload map[string]any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, spawnCall{jobType: jobType, payload: payload})
	return true
}

func (f *fakeSpawner) snapshot() []spawnCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spawnCall(nil), f.calls...)
}

type fakeGen struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeGen) GenerateText(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	out := f.replies[0]
	f.replies = f.replies[1:]
	return out, nil
}

type fixture struct {
	db         *gorm.DB
	courses    repos.CourseRepo
	lessons    repos.LessonRepo
	progress   repos.LessonProgressRepo
	feedback   repos.LessonFeedbackRepo
	expansions repos.TopicExpansionRepo
	research   repos.CourseResearchRepo
	jobs       *fakeSpawner
	gen        *fakeGen

	courseSvc   CourseService
	lessonSvc   LessonService
	outlineSvc  OutlineService
	researchSvc ResearchService
}

func newFixture(t *testing.T, researchEnabled bool) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := logger.Nop()
	f := &fixture{
		db:         db,
		courses:    repos.NewCourseRepo(db, log),
		lessons:    repos.NewLessonRepo(db, log),
		progress:   repos.NewLessonProgressRepo(db, log),
		feedback:   repos.NewLessonFeedbackRepo(db, log),
		expansions: repos.NewTopicExpansionRepo(db, log),
		research:   repos.NewCourseResearchRepo(db, log),
		jobs:       &fakeSpawner{},
		gen:        &fakeGen{},
	}
	lessonGate := gate.NewLessonGate(f.lessons, log)
	researchGate := gate.NewResearchGate(f.research, log)

	f.courseSvc = NewCourseService(db, log, f.courses, f.lessons, f.progress, f.feedback, f.expansions, f.research, f.jobs, researchEnabled)
	f.lessonSvc = NewLessonService(db, log, f.courses, f.lessons, f.progress, f.feedback, f.expansions, lessonGate, f.gen, f.jobs, true)
	f.outlineSvc = NewOutlineService(log, outline.NewNegotiator(f.gen, log))
	f.researchSvc = NewResearchService(log, f.courses, f.research, researchGate, f.jobs, researchEnabled)
	return f
}

func (f *fixture) markReady(t *testing.T, lessonID uuid.UUID, content string) {
	t.Helper()
	require.NoError(t, f.db.Model(&types.Lesson{}).Where("id = ?", lessonID).
		Updates(map[string]interface{}{"status": types.LessonStatusReady, "content": content}).Error)
}

func sampleOutline(n int) outline.Outline {
	o := outline.Outline{Title: "Bird Watching Basics", Description: "Spot and name common birds."}
	titles := []string{"Why Watch Birds", "Gear on a Budget", "Reading Field Marks", "Songs and Calls"}
	for i := 0; i < n; i++ {
		o.Sessions = append(o.Sessions, outline.Session{SessionNumber: i + 1, Title: titles[i%len(titles)]})
	}
	return o
}
