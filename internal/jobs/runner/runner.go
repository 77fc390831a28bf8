package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	jobrt "github.com/yungbote/microlearn-backend/internal/jobs/runtime"
	"github.com/yungbote/microlearn-backend/internal/observability"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomePanicked  = "panicked"
	OutcomeTimedOut  = "timed_out"
)

// Spawner is what request paths depend on.
type Spawner interface {
	Spawn(jobType string, payload map[string]any) bool
}

type Config struct {
	MaxConcurrency int64
}

/*
Runner executes registered handlers in detached goroutines.
	- Spawn never blocks and never reports handler errors to the caller.
	- At most MaxConcurrency runs execute at once; extra runs wait inside their own goroutine.
	- Every run gets context.Background() plus the handler timeout, so request cancellation
	  never reaches it.
	- Panics are recovered and logged.
*/
type Runner struct {
	registry *jobrt.Registry
	log      *logger.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	sem      *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(registry *jobrt.Registry, baseLog *logger.Logger, metrics *observability.Metrics, cfg Config) *Runner {
	limit := cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	return &Runner{
		registry: registry,
		log:      baseLog.With("component", "JobRunner"),
		metrics:  metrics,
		tracer:   observability.Tracer(),
		sem:      semaphore.NewWeighted(limit),
	}
}

// Spawn reports whether the run was accepted. Unknown job types and spawns after
// Shutdown are logged and dropped.
func (r *Runner) Spawn(jobType string, payload map[string]any) bool {
	h, ok := r.registry.Get(jobType)
	if !ok {
		r.log.Warn("No handler registered for job_type", "job_type", jobType)
		r.metrics.IncJobDropped(jobType, "unknown_type")
		return false
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		r.log.Warn("Spawn after shutdown dropped", "job_type", jobType)
		r.metrics.IncJobDropped(jobType, "shutdown")
		return false
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	go r.run(h, jobType, payload)
	return true
}

func (r *Runner) run(h jobrt.Handler, jobType string, payload map[string]any) {
	defer r.wg.Done()

	// Background never errors, so Acquire only waits.
	_ = r.sem.Acquire(context.Background(), 1)
	defer r.sem.Release(1)

	timeout := h.Timeout()
	if timeout <= 0 {
		timeout = jobrt.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "job."+jobType, trace.WithAttributes(attribute.String("job.type", jobType)))
	defer span.End()
	for _, key := range []string{jobrt.KeyLessonID, jobrt.KeyCourseID} {
		if v, ok := payload[key]; ok {
			span.SetAttributes(attribute.String("job."+key, fmt.Sprint(v)))
		}
	}

	jc := jobrt.NewContext(ctx, jobType, payload, r.log)
	start := time.Now()
	r.metrics.JobStarted()

	outcome, err := r.execute(h, jc)
	dur := time.Since(start)
	r.metrics.ObserveJob(jobType, outcome, dur)

	span.SetAttributes(attribute.String("job.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	switch outcome {
	case OutcomeSucceeded:
		jc.Log.Debug("Job finished", "duration_ms", dur.Milliseconds())
	case OutcomeTimedOut:
		jc.Log.Warn("Job timed out", "timeout", timeout, "error", err)
	case OutcomeFailed:
		jc.Log.Warn("Job failed", "duration_ms", dur.Milliseconds(), "error", err)
	}
}

func (r *Runner) execute(h jobrt.Handler, jc *jobrt.Context) (outcome string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			jc.Log.Error("Job handler panic", "panic", rec, "stack", string(debug.Stack()))
			outcome, err = OutcomePanicked, fmt.Errorf("panic: %v", rec)
		}
	}()

	if err = h.Run(jc); err == nil {
		return OutcomeSucceeded, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(jc.Ctx.Err(), context.DeadlineExceeded) {
		return OutcomeTimedOut, err
	}
	return OutcomeFailed, err
}

// Shutdown stops accepting spawns and waits for in-flight runs until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job runner shutdown: %w", ctx.Err())
	}
}
