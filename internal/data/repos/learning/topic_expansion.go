package learning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type TopicExpansionRepo interface {
	Create(dbc dbctx.Context, exp *types.TopicExpansion) (*types.TopicExpansion, error)
	ListByLessonID(dbc dbctx.Context, lessonID uuid.UUID) ([]*types.TopicExpansion, error)
	FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error
}

type topicExpansionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicExpansionRepo(db *gorm.DB, baseLog *logger.Logger) TopicExpansionRepo {
	return &topicExpansionRepo{db: db, log: baseLog.With("repo", "TopicExpansionRepo")}
}

func (r *topicExpansionRepo) Create(dbc dbctx.Context, exp *types.TopicExpansion) (*types.TopicExpansion, error) {
	if exp == nil {
		return nil, errors.New("nil topic expansion")
	}
	if err := dbc.DB(r.db).Create(exp).Error; err != nil {
		return nil, err
	}
	return exp, nil
}

func (r *topicExpansionRepo) ListByLessonID(dbc dbctx.Context, lessonID uuid.UUID) ([]*types.TopicExpansion, error) {
	out := []*types.TopicExpansion{}
	if lessonID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicExpansionRepo) FullDeleteByLessonIDs(dbc dbctx.Context, lessonIDs []uuid.UUID) error {
	if len(lessonIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("lesson_id IN ?", lessonIDs).
		Delete(&types.TopicExpansion{}).Error
}
