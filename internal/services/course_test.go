package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/course_research"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/lesson_generate"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

func TestBuildCreatesPendingLessonsAndSpawnsWork(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	user := uuid.New()

	o := sampleOutline(3)
	o.Sessions[0].SessionNumber, o.Sessions[2].SessionNumber = 3, 1

	built, err := f.courseSvc.Build(ctx, user, BuildCourseInput{Topic: "birds", Outline: o})
	require.NoError(t, err)
	assert.Equal(t, 3, built.Course.TotalLessons)
	assert.True(t, built.Course.ResearchEnabled)
	require.Len(t, built.Lessons, 3)

	stored, err := f.lessons.ListByCourseID(dbctx.New(ctx), built.Course.ID, true)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i, l := range stored {
		assert.Equal(t, i+1, l.SessionNumber)
		assert.Equal(t, types.LessonStatusPending, l.Status)
		assert.Empty(t, l.Content)
		assert.Equal(t, 5, l.EstimatedMinutes)
	}
	assert.Equal(t, "Reading Field Marks", stored[0].Title)

	research, err := f.research.GetByCourseID(dbctx.New(ctx), built.Course.ID)
	require.NoError(t, err)
	require.NotNil(t, research)
	assert.Equal(t, types.ResearchStatusPending, research.Status)

	calls := f.jobs.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, lesson_generate.JobType, calls[0].jobType)
	assert.Equal(t, stored[0].ID.String(), calls[0].payload["lesson_id"])
	assert.Equal(t, course_research.JobType, calls[1].jobType)
	assert.Equal(t, built.Course.ID.String(), calls[1].payload["course_id"])
}

func TestBuildWithoutResearch(t *testing.T) {
	f := newFixture(t, false)
	built, err := f.courseSvc.Build(context.Background(), uuid.New(), BuildCourseInput{Outline: sampleOutline(1)})
	require.NoError(t, err)
	assert.False(t, built.Course.ResearchEnabled)
	assert.Equal(t, "Bird Watching Basics", built.Course.Topic)

	research, err := f.research.GetByCourseID(dbctx.New(context.Background()), built.Course.ID)
	require.NoError(t, err)
	assert.Nil(t, research)
	assert.Len(t, f.jobs.snapshot(), 1)
}

func TestBuildRejectsInvalidOutlines(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	user := uuid.New()

	cases := map[string]outline.Outline{
		"no sessions":   {Title: "Empty"},
		"too many":      sampleOutline(21),
		"missing title": func() outline.Outline { o := sampleOutline(2); o.Title = ""; return o }(),
		"duplicate numbers": func() outline.Outline {
			o := sampleOutline(2)
			o.Sessions[1].SessionNumber = 1
			return o
		}(),
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.courseSvc.Build(ctx, user, BuildCourseInput{Outline: o})
			assert.ErrorIs(t, err, apierr.ErrValidation)
		})
	}

	list, err := f.courseSvc.List(ctx, user, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.jobs.snapshot())
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)
	f.markReady(t, lessons[0].ID, "Lesson one.")
	require.NoError(t, f.progress.MarkCompleted(dbctx.New(ctx), owner, course.ID, lessons[0].ID))

	detail, err := f.courseSvc.Get(ctx, owner, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.CompletedLessons)
	require.Len(t, detail.Lessons, 2)
	assert.True(t, detail.Lessons[0].Completed)
	assert.False(t, detail.Lessons[1].Completed)
	assert.Empty(t, detail.Lessons[0].Content)

	_, err = f.courseSvc.Get(ctx, uuid.New(), course.ID)
	assert.ErrorIs(t, err, apierr.ErrOwnership)

	_, err = f.courseSvc.Get(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestArchiveAndUnarchive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 1)

	got, err := f.courseSvc.SetArchived(ctx, owner, course.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	assert.NotNil(t, got.ArchivedAt)

	active, err := f.courseSvc.List(ctx, owner, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	archived, err := f.courseSvc.List(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, archived, 1)

	got, err = f.courseSvc.SetArchived(ctx, owner, course.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Archived)
	assert.Nil(t, got.ArchivedAt)

	_, err = f.courseSvc.SetArchived(ctx, uuid.New(), course.ID, true)
	assert.ErrorIs(t, err, apierr.ErrOwnership)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	owner := uuid.New()
	course := testutil.SeedCourse(t, ctx, f.db, owner, 2)
	lessons := testutil.SeedLessons(t, ctx, f.db, course.ID, 2)
	testutil.SeedFeedback(t, ctx, f.db, owner, lessons[0], "more examples", time.Now())
	testutil.SeedResearch(t, ctx, f.db, course.ID, types.ResearchStatusCompleted, nil)
	require.NoError(t, f.progress.MarkCompleted(dbc, owner, course.ID, lessons[0].ID))
	_, err := f.expansions.Create(dbc, &types.TopicExpansion{LessonID: lessons[0].ID, Topic: "owls", Content: "Owls."})
	require.NoError(t, err)

	require.ErrorIs(t, f.courseSvc.Delete(ctx, uuid.New(), course.ID), apierr.ErrOwnership)
	require.NoError(t, f.courseSvc.Delete(ctx, owner, course.ID))

	got, err := f.courses.GetByID(dbc, course.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, model := range []interface{}{&types.Lesson{}, &types.LessonProgress{}, &types.LessonFeedback{}, &types.CourseResearch{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Where("course_id = ?", course.ID).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}
	exps, err := f.expansions.ListByLessonID(dbc, lessons[0].ID)
	require.NoError(t, err)
	assert.Empty(t, exps)

	assert.ErrorIs(t, f.courseSvc.Delete(ctx, owner, course.ID), apierr.ErrNotFound)
}
