package lesson_generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/content"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/prompts"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

var errEmptyOutput = errors.New("model returned empty lesson")

// Run generates one lesson. Only the claim winner calls the model; everyone else
// returns nil because the lesson is already handled.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	ctx := jc.Ctx
	lessonID, ok := jc.PayloadUUID(jobrt.KeyLessonID)
	if !ok {
		return fmt.Errorf("missing lesson_id")
	}
	log := jc.Log.With("lesson_id", lessonID)

	lesson, err := p.lessons.GetByID(dbctx.New(ctx), lessonID)
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		log.Debug("Lesson gone before generation")
		return nil
	}
	if d := p.gate.Check(lesson); d != gate.Permitted {
		log.Debug("Lesson generation not needed", "decision", d)
		p.metrics.IncGeneration("lesson", "skipped")
		return nil
	}

	ticket, err := p.gate.Claim(ctx, lessonID)
	if err != nil {
		return err
	}
	if ticket == nil {
		p.metrics.IncGeneration("lesson", "skipped")
		return nil
	}

	course, text, cites, err := p.generate(ctx, lesson)
	if err != nil {
		p.release(ctx, *ticket, err, log)
		p.metrics.IncGeneration("lesson", "failed")
		return err
	}
	if course == nil {
		p.release(ctx, *ticket, nil, log)
		return nil
	}

	committed, err := p.gate.Commit(ctx, *ticket, text, content.EncodeCitationMap(cites))
	if err != nil {
		p.release(ctx, *ticket, err, log)
		p.metrics.IncGeneration("lesson", "failed")
		return err
	}
	if !committed {
		p.metrics.IncGeneration("lesson", "discarded")
		return nil
	}

	p.metrics.IncGeneration("lesson", "committed")
	log.Info("Lesson generated", "citations", len(cites), "chars", len(text))
	bus.PublishBestEffort(ctx, p.notify, log, bus.Event{
		Event:    bus.EventLessonReady,
		CourseID: course.ID.String(),
		LessonID: lessonID.String(),
		UserID:   course.UserID.String(),
	})
	return nil
}

// generate snapshots course, feedback and research at task start and calls the model.
// A nil course means the course vanished and the work should be abandoned quietly.
func (p *Pipeline) generate(ctx context.Context, lesson *types.Lesson) (*types.Course, string, map[int]string, error) {
	dbc := dbctx.New(ctx)
	course, err := p.courses.GetByID(dbc, lesson.CourseID)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, "", nil, nil
	}
	feedback, err := p.feedback.ListRecentByCourse(dbc, course.ID, prompts.FeedbackWindow)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load feedback: %w", err)
	}
	research, err := p.research.GetByCourseID(dbc, course.ID)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load research: %w", err)
	}

	in := prompts.LessonInputFrom(course, lesson, feedback, research)
	out, err := p.ai.GenerateText(ctx, prompts.ComposeLesson(in), MaxOutputTokens)
	if err != nil {
		return nil, "", nil, apierr.Provider(err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, "", nil, apierr.Provider(errEmptyOutput)
	}

	var cites map[int]string
	if in.HasSources() {
		cites = content.ReconcileCitations(out, in.Research.Sources)
	}
	return course, out, cites, nil
}

// release runs on a fresh context so a timed-out run still hands the lesson back.
func (p *Pipeline) release(ctx context.Context, t gate.Ticket, cause error, log *logger.Logger) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.gate.Release(rctx, t, cause); err != nil {
		log.Warn("Lesson release failed", "error", err)
	}
}
