package lesson_generate

import (
	"time"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/openai"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

const (
	JobType         = "lesson_generate"
	MaxOutputTokens = 1800
)

type Pipeline struct {
	log      *logger.Logger
	lessons  repos.LessonRepo
	courses  repos.CourseRepo
	feedback repos.LessonFeedbackRepo
	research repos.CourseResearchRepo
	gate     *gate.LessonGate
	ai       openai.Client
	notify   bus.Notifier
	metrics  *observability.Metrics
	timeout  time.Duration
}

func New(
	baseLog *logger.Logger,
	lessons repos.LessonRepo,
	courses repos.CourseRepo,
	feedback repos.LessonFeedbackRepo,
	research repos.CourseResearchRepo,
	lessonGate *gate.LessonGate,
	ai openai.Client,
	notify bus.Notifier,
	metrics *observability.Metrics,
	timeout time.Duration,
) *Pipeline {
	if notify == nil {
		notify = bus.Noop()
	}
	return &Pipeline{
		log:      baseLog.With("job", JobType),
		lessons:  lessons,
		courses:  courses,
		feedback: feedback,
		research: research,
		gate:     lessonGate,
		ai:       ai,
		notify:   notify,
		metrics:  metrics,
		timeout:  timeout,
	}
}

func (p *Pipeline) Type() string { return JobType }

func (p *Pipeline) Timeout() time.Duration { return p.timeout }
