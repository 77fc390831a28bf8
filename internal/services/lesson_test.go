package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/lesson_generate"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

func TestGetLessonPendingSpawnsGeneration(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]

	view, err := f.lessonSvc.GetLesson(ctx, owner, lesson.ID)
	require.NoError(t, err)
	assert.True(t, view.Pending)
	assert.Equal(t, types.LessonStatusPending, view.Status)
	assert.Equal(t, int64(2000), view.RetryAfterMS)
	assert.Empty(t, view.Lesson.Content)

	calls := f.jobs.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, lesson_generate.JobType, calls[0].jobType)
	assert.Equal(t, lesson.ID.String(), calls[0].payload["lesson_id"])
}

func TestGetLessonDoesNotSpawnWhenInFlightOrReady(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)
	require.NoError(t, f.db.Model(&types.Lesson{}).Where("id = ?", lessons[0].ID).
		Update("status", types.LessonStatusGenerating).Error)
	f.markReady(t, lessons[1].ID, "Ready text.")

	view, err := f.lessonSvc.GetLesson(ctx, owner, lessons[0].ID)
	require.NoError(t, err)
	assert.True(t, view.Pending)
	assert.Equal(t, types.LessonStatusGenerating, view.Status)

	view, err = f.lessonSvc.GetLesson(ctx, owner, lessons[1].ID)
	require.NoError(t, err)
	assert.False(t, view.Pending)
	assert.Zero(t, view.RetryAfterMS)
	assert.Equal(t, "Ready text.", view.Lesson.Content)

	assert.Empty(t, f.jobs.snapshot())
}

func TestGetLessonProjectsLatestFeedback(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]
	f.markReady(t, lesson.ID, "Text.")
	base := time.Now().Add(-time.Hour)
	testutil.SeedFeedback(t, ctx, f.db, owner, lesson, "too long", base)
	testutil.SeedFeedback(t, ctx, f.db, owner, lesson, "just right now", base.Add(time.Minute))

	view, err := f.lessonSvc.GetLesson(ctx, owner, lesson.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Lesson.UserFeedback)
	assert.Equal(t, "just right now", *view.Lesson.UserFeedback)

	_, err = f.lessonSvc.GetLesson(ctx, uuid.New(), lesson.ID)
	assert.ErrorIs(t, err, apierr.ErrOwnership)
	_, err = f.lessonSvc.GetLesson(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestCompleteMarksProgressAndPrefetchesNext(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)

	_, err := f.lessonSvc.Complete(ctx, owner, lessons[0].ID)
	require.ErrorIs(t, err, apierr.ErrValidation)

	f.markReady(t, lessons[0].ID, "One.")
	res, err := f.lessonSvc.Complete(ctx, owner, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CompletedLessons)
	assert.False(t, res.CourseCompleted)
	require.NotNil(t, res.NextLessonID)
	assert.Equal(t, lessons[1].ID, *res.NextLessonID)

	calls := f.jobs.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, lessons[1].ID.String(), calls[0].payload["lesson_id"])

	// Completing twice is idempotent.
	res, err = f.lessonSvc.Complete(ctx, owner, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CompletedLessons)
}

func TestCompletingLastLessonCompletesCourse(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)
	for _, l := range lessons {
		f.markReady(t, l.ID, "Text.")
	}

	_, err := f.lessonSvc.Complete(ctx, owner, lessons[0].ID)
	require.NoError(t, err)
	res, err := f.lessonSvc.Complete(ctx, owner, lessons[1].ID)
	require.NoError(t, err)
	assert.True(t, res.CourseCompleted)
	assert.Nil(t, res.NextLessonID)
	assert.Empty(t, f.jobs.snapshot(), "ready lessons are never respawned")

	stored, err := f.courses.GetByID(dbctx.New(ctx), course.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.NotNil(t, stored.CompletedAt)
}

func TestSubmitFeedbackValidates(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]

	_, err := f.lessonSvc.SubmitFeedback(ctx, owner, lesson.ID, "   ")
	assert.ErrorIs(t, err, apierr.ErrValidation)
	_, err = f.lessonSvc.SubmitFeedback(ctx, owner, lesson.ID, strings.Repeat("a", MaxFeedbackLen+1))
	assert.ErrorIs(t, err, apierr.ErrValidation)
	_, err = f.lessonSvc.SubmitFeedback(ctx, uuid.New(), lesson.ID, "nice")
	assert.ErrorIs(t, err, apierr.ErrOwnership)

	fb, err := f.lessonSvc.SubmitFeedback(ctx, owner, lesson.ID, "  more diagrams please ")
	require.NoError(t, err)
	assert.Equal(t, "more diagrams please", fb.Feedback)
	assert.Equal(t, course.ID, fb.CourseID)

	recent, err := f.feedback.ListRecentByCourse(dbctx.New(ctx), course.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestCreateExpansion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 1)
	lesson := testutil.SeedLessons(t, ctx, f.db, course.ID, 1)[0]

	_, err := f.lessonSvc.CreateExpansion(ctx, owner, lesson.ID, "owls")
	require.ErrorIs(t, err, apierr.ErrValidation, "lesson not ready")

	f.markReady(t, lesson.ID, "Birds have feathers.")
	_, err = f.lessonSvc.CreateExpansion(ctx, owner, lesson.ID, strings.Repeat("x", MaxExpansionTopicLen+1))
	require.ErrorIs(t, err, apierr.ErrValidation)

	f.gen.replies = []string{"  Owls hunt at night.  "}
	exp, err := f.lessonSvc.CreateExpansion(ctx, owner, lesson.ID, "owls")
	require.NoError(t, err)
	assert.Equal(t, "Owls hunt at night.", exp.Content)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Birds have feathers.")
	assert.Contains(t, f.gen.prompts[0], `"owls"`)

	list, err := f.lessonSvc.ListExpansions(ctx, owner, lesson.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, exp.ID, list[0].ID)

	f.gen.err = errors.New("503")
	_, err = f.lessonSvc.CreateExpansion(ctx, owner, lesson.ID, "hawks")
	assert.ErrorIs(t, err, apierr.ErrProvider)

	f.gen.err = nil
	_, err = f.lessonSvc.CreateExpansion(ctx, owner, lesson.ID, "hawks")
	assert.ErrorIs(t, err, apierr.ErrProvider, "empty output")

	list, err = f.lessonSvc.ListExpansions(ctx, owner, lesson.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
