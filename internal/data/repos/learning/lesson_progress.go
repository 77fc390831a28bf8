package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type LessonProgressRepo interface {
	// MarkCompleted upserts on (user_id, lesson_id). The first completed_at is kept.
	MarkCompleted(dbc dbctx.Context, userID, courseID, lessonID uuid.UUID) error
	CountCompletedByCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error)
	ListByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) ([]*types.LessonProgress, error)
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func (r *lessonProgressRepo) MarkCompleted(dbc dbctx.Context, userID, courseID, lessonID uuid.UUID) error {
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return errors.New("user id and lesson id are required")
	}
	now := time.Now().UTC()
	row := &types.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		CourseID:    courseID,
		Completed:   true,
		CompletedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"completed":  true,
				"updated_at": now,
			}),
		}).
		Create(row).Error
}

func (r *lessonProgressRepo) CountCompletedByCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil || courseID == uuid.Nil {
		return 0, nil
	}
	err := dbc.DB(r.db).
		Model(&types.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&n).Error
	return n, err
}

func (r *lessonProgressRepo) ListByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) ([]*types.LessonProgress, error) {
	out := []*types.LessonProgress{}
	if userID == uuid.Nil || courseID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonProgressRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.LessonProgress{}).Error
}
