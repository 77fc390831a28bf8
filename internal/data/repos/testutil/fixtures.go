package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, sessions int) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:           uuid.New(),
		UserID:       userID,
		Topic:        "bird watching",
		Title:        "Bird Watching Basics",
		Description:  "Identify common birds in your area.",
		TotalLessons: sessions,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedLessons creates lessons 1..n for the course, all pending.
func SeedLessons(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, n int) []*types.Lesson {
	tb.Helper()
	out := make([]*types.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &types.Lesson{
			ID:               uuid.New(),
			CourseID:         courseID,
			SessionNumber:    i,
			Title:            fmt.Sprintf("Session %d", i),
			Status:           types.LessonStatusPending,
			EstimatedMinutes: 5,
		})
	}
	if n == 0 {
		return out
	}
	if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
		tb.Fatalf("seed lessons: %v", err)
	}
	return out
}

func SeedFeedback(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, lesson *types.Lesson, text string, at time.Time) *types.LessonFeedback {
	tb.Helper()
	fb := &types.LessonFeedback{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lesson.ID,
		CourseID:  lesson.CourseID,
		Feedback:  text,
		CreatedAt: at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(fb).Error; err != nil {
		tb.Fatalf("seed feedback: %v", err)
	}
	return fb
}

func SeedResearch(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, status types.ResearchStatus, citations []types.ResearchCitation) *types.CourseResearch {
	tb.Helper()
	r := &types.CourseResearch{
		ID:        uuid.New(),
		CourseID:  courseID,
		Status:    status,
		Citations: types.EncodeResearchCitations(citations),
	}
	if status == types.ResearchStatusCompleted {
		r.Content = "Research notes."
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed research: %v", err)
	}
	return r
}
