package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const ResearchTimedOut = "research timed out"

type SweeperConfig struct {
	Schedule      string
	LessonStale   time.Duration
	ResearchStale time.Duration
}

// StaleSweeper returns abandoned generating rows to a retryable state. A process that
// dies mid-generation would otherwise leave them stuck forever.
type StaleSweeper struct {
	log      *logger.Logger
	lessons  repos.LessonRepo
	research repos.CourseResearchRepo
	metrics  *observability.Metrics
	cfg      SweeperConfig
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewStaleSweeper(baseLog *logger.Logger, lessons repos.LessonRepo, research repos.CourseResearchRepo, metrics *observability.Metrics, cfg SweeperConfig) *StaleSweeper {
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.LessonStale <= 0 {
		cfg.LessonStale = 10 * time.Minute
	}
	if cfg.ResearchStale <= 0 {
		cfg.ResearchStale = 10 * time.Minute
	}
	return &StaleSweeper{
		log:      baseLog.With("component", "StaleSweeper"),
		lessons:  lessons,
		research: research,
		metrics:  metrics,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules Sweep. Overlapping ticks are skipped.
func (s *StaleSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, _, err := s.Sweep(ctx); err != nil {
			s.log.Error("Stale sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid SWEEPER_SCHEDULE %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.log.Info("Stale sweeper started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop waits for a running sweep, bounded by ctx.
func (s *StaleSweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep runs one pass and reports how many lessons and research rows were reset.
func (s *StaleSweeper) Sweep(ctx context.Context) (int64, int64, error) {
	now := s.now()
	dbc := dbctx.New(ctx)

	lessons, err := s.lessons.ResetStaleGenerating(dbc, now.Add(-s.cfg.LessonStale))
	if err != nil {
		return 0, 0, fmt.Errorf("reset stale lessons: %w", err)
	}
	research, err := s.research.FailStaleGenerating(dbc, now.Add(-s.cfg.ResearchStale), ResearchTimedOut)
	if err != nil {
		return lessons, 0, fmt.Errorf("fail stale research: %w", err)
	}

	s.metrics.AddStaleReset("lesson", lessons)
	s.metrics.AddStaleReset("research", research)
	if lessons > 0 || research > 0 {
		s.log.Warn("Reset stale generation", "lessons", lessons, "research", research)
	}
	return lessons, research, nil
}
