package course_research

import (
	"time"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/research"
	"github.com/yungbote/microlearn-backend/internal/realtime/bus"
)

const JobType = "course_research"

type Pipeline struct {
	log     *logger.Logger
	courses repos.CourseRepo
	lessons repos.LessonRepo
	gate    *gate.ResearchGate
	client  research.Client
	notify  bus.Notifier
	metrics *observability.Metrics
	timeout time.Duration
}

func New(
	baseLog *logger.Logger,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	researchGate *gate.ResearchGate,
	client research.Client,
	notify bus.Notifier,
	metrics *observability.Metrics,
	timeout time.Duration,
) *Pipeline {
	if timeout <= 0 || timeout > research.MaxTimeout {
		timeout = research.MaxTimeout
	}
	if notify == nil {
		notify = bus.Noop()
	}
	return &Pipeline{
		log:     baseLog.With("job", JobType),
		courses: courses,
		lessons: lessons,
		gate:    researchGate,
		client:  client,
		notify:  notify,
		metrics: metrics,
		timeout: timeout,
	}
}

func (p *Pipeline) Type() string { return JobType }

// Timeout leaves room after the provider deadline to record the outcome.
func (p *Pipeline) Timeout() time.Duration { return p.timeout + 15*time.Second }
