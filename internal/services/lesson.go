package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/lesson_generate"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/prompts"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/pkg/pointers"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/openai"
)

const (
	// PendingRetryAfter is the polling hint returned while a lesson is not ready.
	PendingRetryAfter = 2 * time.Second

	MaxFeedbackLen       = 2000
	MaxExpansionTopicLen = 200
	expansionMaxTokens   = 900
)

var errNotReady = apierr.Validation("lesson is not ready yet")

type LessonView struct {
	Lesson       *types.Lesson      `json:"lesson"`
	Status       types.LessonStatus `json:"status"`
	Pending      bool               `json:"pending"`
	Completed    bool               `json:"completed"`
	RetryAfterMS int64              `json:"retry_after_ms,omitempty"`
}

type CompletionResult struct {
	LessonID         uuid.UUID  `json:"lesson_id"`
	CompletedLessons int64      `json:"completed_lessons"`
	TotalLessons     int        `json:"total_lessons"`
	CourseCompleted  bool       `json:"course_completed"`
	NextLessonID     *uuid.UUID `json:"next_lesson_id,omitempty"`
}

type LessonService interface {
	// GetLesson returns the lesson as stored. A pending lesson triggers background
	// generation and the view carries a polling hint.
	GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*LessonView, error)
	Complete(ctx context.Context, userID, lessonID uuid.UUID) (*CompletionResult, error)
	SubmitFeedback(ctx context.Context, userID, lessonID uuid.UUID, text string) (*types.LessonFeedback, error)
	ListExpansions(ctx context.Context, userID, lessonID uuid.UUID) ([]*types.TopicExpansion, error)
	CreateExpansion(ctx context.Context, userID, lessonID uuid.UUID, topic string) (*types.TopicExpansion, error)
}

type lessonService struct {
	db         *gorm.DB
	log        *logger.Logger
	courses    repos.CourseRepo
	lessons    repos.LessonRepo
	progress   repos.LessonProgressRepo
	feedback   repos.LessonFeedbackRepo
	expansions repos.TopicExpansionRepo
	gate       *gate.LessonGate
	ai         openai.Client
	jobs       JobSpawner
	prefetch   bool
}

func NewLessonService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	progress repos.LessonProgressRepo,
	feedback repos.LessonFeedbackRepo,
	expansions repos.TopicExpansionRepo,
	lessonGate *gate.LessonGate,
	ai openai.Client,
	jobs JobSpawner,
	prefetch bool,
) LessonService {
	return &lessonService{
		db:         db,
		log:        baseLog.With("service", "LessonService"),
		courses:    courses,
		lessons:    lessons,
		progress:   progress,
		feedback:   feedback,
		expansions: expansions,
		gate:       lessonGate,
		ai:         ai,
		jobs:       spawnerOrNoop(jobs),
		prefetch:   prefetch,
	}
}

func (s *lessonService) GetLesson(ctx context.Context, userID, lessonID uuid.UUID) (*LessonView, error) {
	dbc := dbctx.New(ctx)
	lesson, course, err := ownedLesson(dbc, s.lessons, s.courses, userID, lessonID)
	if err != nil {
		return nil, err
	}

	if s.gate.Check(lesson) == gate.Permitted {
		s.jobs.Spawn(lesson_generate.JobType, jobrt.LessonPayload(ctx, lesson.ID))
	}

	latest, err := s.feedback.LatestByLesson(dbc, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	if latest != nil {
		lesson.UserFeedback = pointers.String(latest.Feedback)
	}
	completed, err := s.isCompleted(dbc, userID, course.ID, lesson.ID)
	if err != nil {
		return nil, err
	}

	view := &LessonView{
		Lesson:    lesson,
		Status:    lesson.Status,
		Pending:   !lesson.IsReady(),
		Completed: completed,
	}
	if view.Pending {
		view.RetryAfterMS = PendingRetryAfter.Milliseconds()
	}
	return view, nil
}

func (s *lessonService) isCompleted(dbc dbctx.Context, userID, courseID, lessonID uuid.UUID) (bool, error) {
	rows, err := s.progress.ListByUserAndCourse(dbc, userID, courseID)
	if err != nil {
		return false, fmt.Errorf("load progress: %w", err)
	}
	for _, p := range rows {
		if p != nil && p.LessonID == lessonID {
			return p.Completed, nil
		}
	}
	return false, nil
}

func (s *lessonService) Complete(ctx context.Context, userID, lessonID uuid.UUID) (*CompletionResult, error) {
	lesson, course, err := ownedLesson(dbctx.New(ctx), s.lessons, s.courses, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsReady() {
		return nil, errNotReady
	}

	res := &CompletionResult{LessonID: lesson.ID, TotalLessons: course.TotalLessons}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.progress.MarkCompleted(dbc, userID, course.ID, lesson.ID); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}
		n, err := s.progress.CountCompletedByCourse(dbc, userID, course.ID)
		if err != nil {
			return fmt.Errorf("count completed: %w", err)
		}
		res.CompletedLessons = n
		res.CourseCompleted = course.Completed
		if !course.Completed && course.TotalLessons > 0 && n >= int64(course.TotalLessons) {
			if err := s.courses.UpdateFields(dbc, course.ID, map[string]interface{}{
				"completed":    true,
				"completed_at": time.Now().UTC(),
			}); err != nil {
				return fmt.Errorf("complete course: %w", err)
			}
			res.CourseCompleted = true
		}
		return nil
	})
	if err != nil {
		s.log.Error("Complete lesson failed", "error", err, "lesson_id", lessonID)
		return nil, err
	}

	next, err := s.lessons.GetByCourseAndSession(dbctx.New(ctx), course.ID, lesson.SessionNumber+1)
	if err != nil {
		// Completion already committed; a missing prefetch is retried on the next fetch.
		s.log.Warn("Load next lesson failed", "error", err, "course_id", course.ID)
		return res, nil
	}
	if next != nil {
		id := next.ID
		res.NextLessonID = &id
		if s.prefetch && s.gate.Check(next) == gate.Permitted {
			s.jobs.Spawn(lesson_generate.JobType, jobrt.LessonPayload(ctx, next.ID))
		}
	}
	return res, nil
}

func (s *lessonService) SubmitFeedback(ctx context.Context, userID, lessonID uuid.UUID, text string) (*types.LessonFeedback, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierr.Validation("feedback is required")
	}
	if len([]rune(text)) > MaxFeedbackLen {
		return nil, apierr.Validation("feedback must be at most %d characters", MaxFeedbackLen)
	}
	dbc := dbctx.New(ctx)
	lesson, course, err := ownedLesson(dbc, s.lessons, s.courses, userID, lessonID)
	if err != nil {
		return nil, err
	}
	fb, err := s.feedback.Create(dbc, &types.LessonFeedback{
		ID:        uuid.New(),
		UserID:    userID,
		LessonID:  lesson.ID,
		CourseID:  course.ID,
		Feedback:  text,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return fb, nil
}

func (s *lessonService) ListExpansions(ctx context.Context, userID, lessonID uuid.UUID) ([]*types.TopicExpansion, error) {
	dbc := dbctx.New(ctx)
	if _, _, err := ownedLesson(dbc, s.lessons, s.courses, userID, lessonID); err != nil {
		return nil, err
	}
	out, err := s.expansions.ListByLessonID(dbc, lessonID)
	if err != nil {
		return nil, fmt.Errorf("list expansions: %w", err)
	}
	return out, nil
}

func (s *lessonService) CreateExpansion(ctx context.Context, userID, lessonID uuid.UUID, topic string) (*types.TopicExpansion, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.Validation("topic is required")
	}
	if len([]rune(topic)) > MaxExpansionTopicLen {
		return nil, apierr.Validation("topic must be at most %d characters", MaxExpansionTopicLen)
	}
	dbc := dbctx.New(ctx)
	lesson, course, err := ownedLesson(dbc, s.lessons, s.courses, userID, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsReady() {
		return nil, errNotReady
	}

	prompt := prompts.ComposeTopicExpansion(course.Title, lesson.Title, lesson.Content, topic)
	text, err := s.ai.GenerateText(ctx, prompt, expansionMaxTokens)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty expansion")
	}
	if err != nil {
		s.log.Warn("Topic expansion failed", "error", err, "lesson_id", lessonID)
		return nil, apierr.Provider(err)
	}

	exp, err := s.expansions.Create(dbc, &types.TopicExpansion{
		ID:        uuid.New(),
		LessonID:  lesson.ID,
		Topic:     topic,
		Content:   strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create expansion: %w", err)
	}
	return exp, nil
}
