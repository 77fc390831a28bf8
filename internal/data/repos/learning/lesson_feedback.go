package learning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

// LessonFeedbackRepo is append-only. Entries are removed only together with their course.
type LessonFeedbackRepo interface {
	Create(dbc dbctx.Context, fb *types.LessonFeedback) (*types.LessonFeedback, error)
	// ListRecentByCourse returns the newest limit entries for the course, oldest first.
	ListRecentByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.LessonFeedback, error)
	LatestByLesson(dbc dbctx.Context, lessonID uuid.UUID) (*types.LessonFeedback, error)
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type lessonFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) LessonFeedbackRepo {
	return &lessonFeedbackRepo{db: db, log: baseLog.With("repo", "LessonFeedbackRepo")}
}

func (r *lessonFeedbackRepo) Create(dbc dbctx.Context, fb *types.LessonFeedback) (*types.LessonFeedback, error) {
	if fb == nil {
		return nil, errors.New("nil feedback")
	}
	if err := dbc.DB(r.db).Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *lessonFeedbackRepo) ListRecentByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*types.LessonFeedback, error) {
	out := []*types.LessonFeedback{}
	if courseID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *lessonFeedbackRepo) LatestByLesson(dbc dbctx.Context, lessonID uuid.UUID) (*types.LessonFeedback, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var fb types.LessonFeedback
	err := dbc.DB(r.db).
		Where("lesson_id = ?", lessonID).
		Order("created_at DESC, seq DESC").
		Take(&fb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

func (r *lessonFeedbackRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.LessonFeedback{}).Error
}
