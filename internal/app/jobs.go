package app

import (
	"fmt"

	"github.com/yungbote/microlearn-backend/internal/jobs/maintenance"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/course_research"
	"github.com/yungbote/microlearn-backend/internal/jobs/pipeline/lesson_generate"
	"github.com/yungbote/microlearn-backend/internal/jobs/runner"
	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/gate"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type Gates struct {
	Lesson   *gate.LessonGate
	Research *gate.ResearchGate
}

type Jobs struct {
	Registry *jobrt.Registry
	Runner   *runner.Runner
	Sweeper  *maintenance.StaleSweeper
}

func wireGates(log *logger.Logger, r Repos) Gates {
	return Gates{
		Lesson:   gate.NewLessonGate(r.Lesson, log),
		Research: gate.NewResearchGate(r.CourseResearch, log),
	}
}

func wireJobs(log *logger.Logger, cfg Config, r Repos, g Gates, c Clients, metrics *observability.Metrics) (Jobs, error) {
	log.Info("Wiring jobs...")
	reg := jobrt.NewRegistry()

	if err := reg.Register(lesson_generate.New(
		log, r.Lesson, r.Course, r.LessonFeedback, r.CourseResearch,
		g.Lesson, c.OpenAI, c.Notifier, metrics, cfg.LessonTimeout,
	)); err != nil {
		return Jobs{}, fmt.Errorf("register %s: %w", lesson_generate.JobType, err)
	}
	if c.Research != nil {
		if err := reg.Register(course_research.New(
			log, r.Course, r.Lesson, g.Research, c.Research, c.Notifier, metrics, cfg.Research.Timeout,
		)); err != nil {
			return Jobs{}, fmt.Errorf("register %s: %w", course_research.JobType, err)
		}
	}

	return Jobs{
		Registry: reg,
		Runner:   runner.New(reg, log, metrics, runner.Config{MaxConcurrency: int64(cfg.JobMaxConcurrency)}),
		Sweeper: maintenance.NewStaleSweeper(log, r.Lesson, r.CourseResearch, metrics, maintenance.SweeperConfig{
			Schedule:      cfg.SweeperSchedule,
			LessonStale:   cfg.StaleGeneration,
			ResearchStale: cfg.ResearchStale(),
		}),
	}, nil
}
