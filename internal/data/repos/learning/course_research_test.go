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

func TestCourseResearchRepoTransitions(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseResearchRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, ctx, tx, uuid.New(), 1)
	_, err := repo.Create(dbc, &types.CourseResearch{CourseID: course.ID})
	require.NoError(t, err)

	require.NoError(t, tx.SavePoint("dup").Error)
	_, err = repo.Create(dbc, &types.CourseResearch{CourseID: course.ID})
	assert.Error(t, err, "at most one research row per course")
	require.NoError(t, tx.RollbackTo("dup").Error)

	pending := []types.ResearchStatus{types.ResearchStatusPending}
	started := time.Now().UTC().Add(-time.Hour)
	ok, err := repo.CompareAndSet(dbc, course.ID, pending, nil, map[string]interface{}{"status": types.ResearchStatusGenerating, "started_at": started})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CompareAndSet(dbc, course.ID, pending, nil, map[string]interface{}{"status": types.ResearchStatusGenerating})
	require.NoError(t, err)
	assert.False(t, ok, "only the first transitioner proceeds")

	n, err := repo.FailStaleGenerating(dbc, time.Now().UTC().Add(-10*time.Minute), "research timed out")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := repo.GetByCourseID(dbc, course.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ResearchStatusFailed, got.Status)
	assert.Equal(t, "research timed out", got.ErrorMessage)

	require.NoError(t, repo.FullDeleteByCourseID(dbc, course.ID))
	got, err = repo.GetByCourseID(dbc, course.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
