package runtime

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultTimeout applies to handlers whose Timeout is zero.
const DefaultTimeout = 60 * time.Second

var (
	ErrInvalidHandler   = errors.New("invalid job handler")
	ErrDuplicateHandler = errors.New("job handler already registered")
)

// Handler is one background job type. Run errors are logged by the runner and never
// reach the request that spawned the run.
type Handler interface {
	Type() string
	Timeout() time.Duration
	Run(jc *Context) error
}

// Registry maps job types to handlers. It is filled once during wiring and read by the runner.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(h Handler) error {
	if h == nil || h.Type() == "" {
		return ErrInvalidHandler
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[h.Type()]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types is sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}
