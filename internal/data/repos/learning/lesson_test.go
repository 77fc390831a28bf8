package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/data/repos/testutil"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
)

func TestLessonRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, uuid.New(), 3)
	lessons := []*types.Lesson{
		{CourseID: course.ID, SessionNumber: 2, Title: "Two"},
		{CourseID: course.ID, SessionNumber: 1, Title: "One"},
		{CourseID: course.ID, SessionNumber: 3, Title: "Three"},
	}
	_, err := repo.Create(dbc, lessons)
	require.NoError(t, err)
	for _, l := range lessons {
		assert.Equal(t, types.LessonStatusPending, l.Status)
	}

	list, err := repo.ListByCourseID(dbc, course.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, l := range list {
		assert.Equal(t, i+1, l.SessionNumber)
	}

	second, err := repo.GetByCourseAndSession(dbc, course.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "Two", second.Title)

	none, err := repo.GetByCourseAndSession(dbc, course.ID, 9)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, tx.SavePoint("dup").Error)
	dup := []*types.Lesson{{CourseID: course.ID, SessionNumber: 1, Title: "Dup"}}
	_, err = repo.Create(dbc, dup)
	assert.Error(t, err, "session numbers are unique per course")
	require.NoError(t, tx.RollbackTo("dup").Error)

	require.NoError(t, repo.FullDeleteByCourseID(dbc, course.ID))
	list, err = repo.ListByCourseID(dbc, course.ID, true)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLessonRepoCompareAndSet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, uuid.New(), 1)
	lesson := testutil.SeedLessons(t, ctx, tx, course.ID, 1)[0]

	token := uuid.New()
	claimed, err := repo.CompareAndSet(dbc, lesson.ID, []types.LessonStatus{types.LessonStatusPending}, nil, map[string]interface{}{
		"status":           types.LessonStatusGenerating,
		"generation_token": token,
	})
	require.NoError(t, err)
	assert.True(t, claimed)

	again, err := repo.CompareAndSet(dbc, lesson.ID, []types.LessonStatus{types.LessonStatusPending}, nil, map[string]interface{}{
		"status": types.LessonStatusGenerating,
	})
	require.NoError(t, err)
	assert.False(t, again, "second claim must lose")

	other := uuid.New()
	wrongToken, err := repo.CompareAndSet(dbc, lesson.ID, []types.LessonStatus{types.LessonStatusGenerating}, &other, map[string]interface{}{
		"status":  types.LessonStatusReady,
		"content": "stale",
	})
	require.NoError(t, err)
	assert.False(t, wrongToken)

	ok, err := repo.CompareAndSet(dbc, lesson.ID, []types.LessonStatus{types.LessonStatusGenerating}, &token, map[string]interface{}{
		"status":  types.LessonStatusReady,
		"content": "fresh",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(dbc, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Content)
	assert.Equal(t, types.LessonStatusReady, got.Status)

	missing, err := repo.CompareAndSet(dbc, uuid.New(), []types.LessonStatus{types.LessonStatusGenerating}, &token, map[string]interface{}{"content": "x"})
	require.NoError(t, err)
	assert.False(t, missing, "a missing row is not an error")
}

func TestLessonRepoResetStaleGenerating(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewLessonRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, uuid.New(), 2)
	lessons := testutil.SeedLessons(t, ctx, tx, course.ID, 2)

	old := time.Now().UTC().Add(-time.Hour)
	recent := time.Now().UTC()
	for i, started := range []time.Time{old, recent} {
		token := uuid.New()
		_, err := repo.CompareAndSet(dbc, lessons[i].ID, []types.LessonStatus{types.LessonStatusPending}, nil, map[string]interface{}{
			"status":                types.LessonStatusGenerating,
			"generation_token":      token,
			"generation_started_at": started,
		})
		require.NoError(t, err)
	}

	n, err := repo.ResetStaleGenerating(dbc, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	first, _ := repo.GetByID(dbc, lessons[0].ID)
	second, _ := repo.GetByID(dbc, lessons[1].ID)
	assert.Equal(t, types.LessonStatusPending, first.Status)
	assert.Nil(t, first.GenerationToken)
	assert.Equal(t, types.LessonStatusGenerating, second.Status)
}
