package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/course_research"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type ResearchService interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseResearch, error)
	// Retry moves failed research back to pending and starts it again.
	Retry(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseResearch, error)
}

type researchService struct {
	log      *logger.Logger
	courses  repos.CourseRepo
	research repos.CourseResearchRepo
	gate     *gate.ResearchGate
	jobs     JobSpawner
	enabled  bool
}

func NewResearchService(
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	research repos.CourseResearchRepo,
	researchGate *gate.ResearchGate,
	jobs JobSpawner,
	enabled bool,
) ResearchService {
	return &researchService{
		log:      baseLog.With("service", "ResearchService"),
		courses:  courses,
		research: research,
		gate:     researchGate,
		jobs:     spawnerOrNoop(jobs),
		enabled:  enabled,
	}
}

func (s *researchService) Get(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseResearch, error) {
	dbc := dbctx.New(ctx)
	if _, err := ownedCourse(dbc, s.courses, userID, courseID); err != nil {
		return nil, err
	}
	row, err := s.research.GetByCourseID(dbc, courseID)
	if err != nil {
		return nil, fmt.Errorf("load research: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("research for course %s: %w", courseID, apierr.ErrNotFound)
	}
	return row, nil
}

func (s *researchService) Retry(ctx context.Context, userID, courseID uuid.UUID) (*types.CourseResearch, error) {
	if !s.enabled {
		return nil, apierr.Validation("research is not configured")
	}
	row, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	ok, err := s.gate.Retry(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("retry research: %w", err)
	}
	if !ok {
		return nil, apierr.Validation("research is %s, only failed research can be retried", row.Status)
	}
	s.jobs.Spawn(course_research.JobType, jobrt.CoursePayload(ctx, courseID))
	s.log.Info("Research retry requested", "course_id", courseID, "user_id", userID)

	row, err = s.research.GetByCourseID(dbctx.New(ctx), courseID)
	if err != nil {
		return nil, fmt.Errorf("reload research: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("research for course %s: %w", courseID, apierr.ErrNotFound)
	}
	return row, nil
}
