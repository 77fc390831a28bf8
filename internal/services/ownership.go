package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

// JobSpawner starts background work without waiting for it.
type JobSpawner interface {
	Spawn(jobType string, payload map[string]any) bool
}

type noopSpawner struct{}

func (noopSpawner) Spawn(string, map[string]any) bool { return false }

func spawnerOrNoop(s JobSpawner) JobSpawner {
	if s == nil {
		return noopSpawner{}
	}
	return s
}

// ownedCourse loads the course and checks it belongs to userID.
func ownedCourse(dbc dbctx.Context, courses repos.CourseRepo, userID, courseID uuid.UUID) (*types.Course, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user: %w", apierr.ErrOwnership)
	}
	course, err := courses.GetByID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %s: %w", courseID, apierr.ErrNotFound)
	}
	if course.UserID != userID {
		return nil, fmt.Errorf("course %s: %w", courseID, apierr.ErrOwnership)
	}
	return course, nil
}

// ownedLesson resolves the lesson's course and checks it belongs to userID.
func ownedLesson(dbc dbctx.Context, lessons repos.LessonRepo, courses repos.CourseRepo, userID, lessonID uuid.UUID) (*types.Lesson, *types.Course, error) {
	lesson, err := lessons.GetByID(dbc, lessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return nil, nil, fmt.Errorf("lesson %s: %w", lessonID, apierr.ErrNotFound)
	}
	course, err := ownedCourse(dbc, courses, userID, lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}
