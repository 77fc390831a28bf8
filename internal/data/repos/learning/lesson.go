package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error)
	GetByCourseAndSession(dbc dbctx.Context, courseID uuid.UUID, sessionNumber int) (*types.Lesson, error)
	ListByCourseID(dbc dbctx.Context, courseID uuid.UUID, withContent bool) ([]*types.Lesson, error)
	// CompareAndSet applies updates only while the row is in one of fromStatuses
	// (and, when token is non-nil, still carries that generation token).
	// It reports whether a row changed.
	CompareAndSet(dbc dbctx.Context, id uuid.UUID, fromStatuses []types.LessonStatus, token *uuid.UUID, updates map[string]interface{}) (bool, error)
	ResetStaleGenerating(dbc dbctx.Context, startedBefore time.Time) (int64, error)
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.DB(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lesson, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var lesson types.Lesson
	err := dbc.DB(r.db).Where("id = ?", id).Take(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) GetByCourseAndSession(dbc dbctx.Context, courseID uuid.UUID, sessionNumber int) (*types.Lesson, error) {
	if courseID == uuid.Nil || sessionNumber < 1 {
		return nil, nil
	}
	var lesson types.Lesson
	err := dbc.DB(r.db).
		Where("course_id = ? AND session_number = ?", courseID, sessionNumber).
		Take(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *lessonRepo) ListByCourseID(dbc dbctx.Context, courseID uuid.UUID, withContent bool) ([]*types.Lesson, error) {
	out := []*types.Lesson{}
	if courseID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).Where("course_id = ?", courseID)
	if !withContent {
		q = q.Omit("content", "citations")
	}
	if err := q.Order("session_number ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonRepo) CompareAndSet(dbc dbctx.Context, id uuid.UUID, fromStatuses []types.LessonStatus, token *uuid.UUID, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil || len(fromStatuses) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}

	q := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", id)
	if len(fromStatuses) == 1 {
		q = q.Where("status = ?", fromStatuses[0])
	} else {
		q = q.Where("status IN ?", fromStatuses)
	}
	if token != nil {
		q = q.Where("generation_token = ?", *token)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ResetStaleGenerating hands lessons whose generation started before the cutoff back to pending.
func (r *lessonRepo) ResetStaleGenerating(dbc dbctx.Context, startedBefore time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.Lesson{}).
		Where("status = ? AND generation_started_at < ?", types.LessonStatusGenerating, startedBefore.UTC()).
		Updates(map[string]interface{}{
			"status":                types.LessonStatusPending,
			"generation_token":      nil,
			"generation_started_at": nil,
			"last_error":            "generation abandoned",
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *lessonRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.Lesson{}).Error
}
