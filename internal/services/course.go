package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/course_research"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/lesson_generate"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/pkg/pointers"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const (
	defaultEstimatedMinutes = 5
	maxTopicLen             = 200
)

type BuildCourseInput struct {
	Topic   string
	Outline outline.Outline
}

type BuiltCourse struct {
	Course  *types.Course   `json:"course"`
	Lessons []*types.Lesson `json:"lessons"`
}

type LessonSummary struct {
	*types.Lesson
	Completed bool `json:"completed"`
}

type CourseDetail struct {
	Course           *types.Course    `json:"course"`
	Lessons          []*LessonSummary `json:"lessons"`
	CompletedLessons int64            `json:"completed_lessons"`
}

type CourseService interface {
	// Build persists an approved outline as a course with pending lessons and
	// starts generation of the first lesson (and research when enabled).
	Build(ctx context.Context, userID uuid.UUID, in BuildCourseInput) (*BuiltCourse, error)
	List(ctx context.Context, userID uuid.UUID, archived bool) ([]*types.Course, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*CourseDetail, error)
	SetArchived(ctx context.Context, userID, courseID uuid.UUID, archived bool) (*types.Course, error)
	// Delete removes the course together with every row hanging off it.
	Delete(ctx context.Context, userID, courseID uuid.UUID) error
}

type courseService struct {
	db              *gorm.DB
	log             *logger.Logger
	courses         repos.CourseRepo
	lessons         repos.LessonRepo
	progress        repos.LessonProgressRepo
	feedback        repos.LessonFeedbackRepo
	expansions      repos.TopicExpansionRepo
	research        repos.CourseResearchRepo
	jobs            JobSpawner
	researchEnabled bool
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	progress repos.LessonProgressRepo,
	feedback repos.LessonFeedbackRepo,
	expansions repos.TopicExpansionRepo,
	research repos.CourseResearchRepo,
	jobs JobSpawner,
	researchEnabled bool,
) CourseService {
	return &courseService{
		db:              db,
		log:             baseLog.With("service", "CourseService"),
		courses:         courses,
		lessons:         lessons,
		progress:        progress,
		feedback:        feedback,
		expansions:      expansions,
		research:        research,
		jobs:            spawnerOrNoop(jobs),
		researchEnabled: researchEnabled,
	}
}

func (s *courseService) Build(ctx context.Context, userID uuid.UUID, in BuildCourseInput) (*BuiltCourse, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user: %w", apierr.ErrOwnership)
	}
	approved, err := outline.ValidateForBuild(in.Outline)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		topic = approved.Title
	}
	if len([]rune(topic)) > maxTopicLen {
		return nil, apierr.Validation("topic must be at most %d characters", maxTopicLen)
	}

	now := time.Now().UTC()
	course := &types.Course{
		ID:              uuid.New(),
		UserID:          userID,
		Topic:           topic,
		Title:           approved.Title,
		Description:     approved.Description,
		TotalLessons:    len(approved.Sessions),
		ResearchEnabled: s.researchEnabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lessons := make([]*types.Lesson, 0, len(approved.Sessions))
	for _, sess := range approved.Sessions {
		lessons = append(lessons, &types.Lesson{
			ID:               uuid.New(),
			CourseID:         course.ID,
			SessionNumber:    sess.SessionNumber,
			Title:            sess.Title,
			Subtitle:         sess.Subtitle,
			Status:           types.LessonStatusPending,
			EstimatedMinutes: defaultEstimatedMinutes,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.courses.Create(dbc, course); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		if _, err := s.lessons.Create(dbc, lessons); err != nil {
			return fmt.Errorf("create lessons: %w", err)
		}
		if s.researchEnabled {
			row := &types.CourseResearch{
				ID:        uuid.New(),
				CourseID:  course.ID,
				Status:    types.ResearchStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := s.research.Create(dbc, row); err != nil {
				return fmt.Errorf("create research: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("Build course failed", "error", err, "user_id", userID)
		return nil, err
	}

	s.jobs.Spawn(lesson_generate.JobType, jobrt.LessonPayload(ctx, lessons[0].ID))
	if s.researchEnabled {
		s.jobs.Spawn(course_research.JobType, jobrt.CoursePayload(ctx, course.ID))
	}
	s.log.Info("Course built", "course_id", course.ID, "user_id", userID, "lessons", len(lessons))
	return &BuiltCourse{Course: course, Lessons: lessons}, nil
}

func (s *courseService) List(ctx context.Context, userID uuid.UUID, archived bool) ([]*types.Course, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user: %w", apierr.ErrOwnership)
	}
	out, err := s.courses.ListByUser(dbctx.New(ctx), userID, archived)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if out == nil {
		out = []*types.Course{}
	}
	return out, nil
}

func (s *courseService) Get(ctx context.Context, userID, courseID uuid.UUID) (*CourseDetail, error) {
	dbc := dbctx.New(ctx)
	course, err := ownedCourse(dbc, s.courses, userID, courseID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListByCourseID(dbc, courseID, false)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	progress, err := s.progress.ListByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	done := make(map[uuid.UUID]bool, len(progress))
	for _, p := range progress {
		if p != nil && p.Completed {
			done[p.LessonID] = true
		}
	}

	detail := &CourseDetail{Course: course, Lessons: make([]*LessonSummary, 0, len(lessons))}
	for _, l := range lessons {
		completed := done[l.ID]
		if completed {
			detail.CompletedLessons++
		}
		detail.Lessons = append(detail.Lessons, &LessonSummary{Lesson: l, Completed: completed})
	}
	return detail, nil
}

func (s *courseService) SetArchived(ctx context.Context, userID, courseID uuid.UUID, archived bool) (*types.Course, error) {
	dbc := dbctx.New(ctx)
	course, err := ownedCourse(dbc, s.courses, userID, courseID)
	if err != nil {
		return nil, err
	}
	if course.Archived == archived {
		return course, nil
	}
	updates := map[string]interface{}{"archived": archived, "archived_at": nil}
	if archived {
		course.ArchivedAt = pointers.Now()
		updates["archived_at"] = *course.ArchivedAt
	} else {
		course.ArchivedAt = nil
	}
	if err := s.courses.UpdateFields(dbc, courseID, updates); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	course.Archived = archived
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, userID, courseID uuid.UUID) error {
	if _, err := ownedCourse(dbctx.New(ctx), s.courses, userID, courseID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		lessons, err := s.lessons.ListByCourseID(dbc, courseID, false)
		if err != nil {
			return fmt.Errorf("list lessons: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(lessons))
		for _, l := range lessons {
			ids = append(ids, l.ID)
		}
		if err := s.expansions.FullDeleteByLessonIDs(dbc, ids); err != nil {
			return fmt.Errorf("delete expansions: %w", err)
		}
		if err := s.progress.FullDeleteByCourseID(dbc, courseID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if err := s.feedback.FullDeleteByCourseID(dbc, courseID); err != nil {
			return fmt.Errorf("delete feedback: %w", err)
		}
		if err := s.research.FullDeleteByCourseID(dbc, courseID); err != nil {
			return fmt.Errorf("delete research: %w", err)
		}
		if err := s.lessons.FullDeleteByCourseID(dbc, courseID); err != nil {
			return fmt.Errorf("delete lessons: %w", err)
		}
		if err := s.courses.FullDeleteByID(dbc, courseID); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Delete course failed", "error", err, "course_id", courseID)
		return err
	}
	s.log.Info("Course deleted", "course_id", courseID, "user_id", userID)
	return nil
}
