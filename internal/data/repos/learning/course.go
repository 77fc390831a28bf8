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

type CourseRepo interface {
	Create(dbc dbctx.Context, course *types.Course) (*types.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, archived bool) ([]*types.Course, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, course *types.Course) (*types.Course, error) {
	if course == nil {
		return nil, errors.New("nil course")
	}
	if err := dbc.DB(r.db).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// GetByID returns (nil, nil) when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Course, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var course types.Course
	err := dbc.DB(r.db).Where("id = ?", id).Take(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, archived bool) ([]*types.Course, error) {
	out := []*types.Course{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ? AND archived = ?", userID, archived).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *courseRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("id = ?", id).
		Delete(&types.Course{}).Error
}
