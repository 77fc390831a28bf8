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

type CourseResearchRepo interface {
	Create(dbc dbctx.Context, research *types.CourseResearch) (*types.CourseResearch, error)
	GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseResearch, error)
	// CompareAndSet applies updates only while the row is in one of fromStatuses
	// and, when token is non-nil, still carries that generation token.
	CompareAndSet(dbc dbctx.Context, courseID uuid.UUID, fromStatuses []types.ResearchStatus, token *uuid.UUID, updates map[string]interface{}) (bool, error)
	FailStaleGenerating(dbc dbctx.Context, startedBefore time.Time, message string) (int64, error)
	FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error
}

type courseResearchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseResearchRepo(db *gorm.DB, baseLog *logger.Logger) CourseResearchRepo {
	return &courseResearchRepo{db: db, log: baseLog.With("repo", "CourseResearchRepo")}
}

func (r *courseResearchRepo) Create(dbc dbctx.Context, research *types.CourseResearch) (*types.CourseResearch, error) {
	if research == nil {
		return nil, errors.New("nil course research")
	}
	if err := dbc.DB(r.db).Create(research).Error; err != nil {
		return nil, err
	}
	return research, nil
}

func (r *courseResearchRepo) GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseResearch, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var research types.CourseResearch
	err := dbc.DB(r.db).Where("course_id = ?", courseID).Take(&research).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &research, nil
}

func (r *courseResearchRepo) CompareAndSet(dbc dbctx.Context, courseID uuid.UUID, fromStatuses []types.ResearchStatus, token *uuid.UUID, updates map[string]interface{}) (bool, error) {
	if courseID == uuid.Nil || len(fromStatuses) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	q := dbc.DB(r.db).
		Model(&types.CourseResearch{}).
		Where("course_id = ?", courseID)
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

func (r *courseResearchRepo) FailStaleGenerating(dbc dbctx.Context, startedBefore time.Time, message string) (int64, error) {
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.CourseResearch{}).
		Where("status = ? AND started_at < ?", types.ResearchStatusGenerating, startedBefore.UTC()).
		Updates(map[string]interface{}{
			"status":           types.ResearchStatusFailed,
			"generation_token": nil,
			"error_message":    message,
			"completed_at":     now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *courseResearchRepo) FullDeleteByCourseID(dbc dbctx.Context, courseID uuid.UUID) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Delete(&types.CourseResearch{}).Error
}
