package course_research

import (
	"context"
	"fmt"
	"strings"
	"time"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/research"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil {
		return nil
	}
	ctx := jc.Ctx
	courseID, ok := jc.PayloadUUID(jobrt.KeyCourseID)
	if !ok {
		return fmt.Errorf("missing course_id")
	}
	log := jc.Log.With("course_id", courseID)

	course, err := p.courses.GetByID(dbctx.New(ctx), courseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		log.Debug("Course gone before research")
		return nil
	}

	ticket, err := p.gate.Claim(ctx, courseID)
	if err != nil {
		return err
	}
	if ticket == nil {
		p.metrics.IncGeneration("research", "skipped")
		return nil
	}

	outline, err := p.courseContext(ctx, course)
	if err != nil {
		p.fail(ctx, course, *ticket, err, log)
		return err
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	res, err := p.client.Research(rctx, topicOf(course), outline)
	cancel()
	if err != nil {
		p.fail(ctx, course, *ticket, err, log)
		return apierr.Provider(err)
	}

	wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer wcancel()
	done, err := p.gate.Complete(wctx, *ticket, gate.ResearchOutcome{
		Content:    res.Content,
		Citations:  res.Citations,
		Confidence: research.Confidence(res.Citations),
		TokenCount: res.TokenCount,
	})
	if err != nil {
		p.fail(ctx, course, *ticket, err, log)
		return err
	}
	if !done {
		p.metrics.IncGeneration("research", "discarded")
		return nil
	}

	p.metrics.IncGeneration("research", "committed")
	log.Info("Research completed", "citations", len(res.Citations), "tokens", res.TokenCount)
	p.publish(ctx, course, bus.EventResearchCompleted, log)
	return nil
}

func (p *Pipeline) courseContext(ctx context.Context, course *types.Course) (string, error) {
	lessons, err := p.lessons.ListByCourseID(dbctx.New(ctx), course.ID, false)
	if err != nil {
		return "", fmt.Errorf("load lessons: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", course.Title, strings.TrimSpace(course.Description))
	for _, l := range lessons {
		fmt.Fprintf(&b, "%d. %s", l.SessionNumber, l.Title)
		if l.Subtitle != "" {
			fmt.Fprintf(&b, " - %s", l.Subtitle)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// fail records the error on a fresh context; the run context may already be expired.
func (p *Pipeline) fail(ctx context.Context, course *types.Course, t gate.ResearchTicket, cause error, log *logger.Logger) {
	p.metrics.IncGeneration("research", "failed")
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	ok, err := p.gate.Fail(wctx, t, cause)
	if err != nil {
		log.Error("Recording research failure failed", "error", err)
		return
	}
	log.Warn("Research failed", "error", cause)
	if ok {
		p.publish(ctx, course, bus.EventResearchFailed, log)
	}
}

func (p *Pipeline) publish(ctx context.Context, course *types.Course, event string, log *logger.Logger) {
	bus.PublishBestEffort(ctx, p.notify, log, bus.Event{
		Event:    event,
		CourseID: course.ID.String(),
		UserID:   course.UserID.String(),
	})
}

func topicOf(course *types.Course) string {
	if t := strings.TrimSpace(course.Topic); t != "" {
		return t
	}
	return course.Title
}
