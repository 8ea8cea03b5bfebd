package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	types "github.com/yungbote/originality-backend/internal/domain"
)

type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Expirer is implemented by handlers that keep their own state next to the
// job row. The worker calls Expire when a run is failed without the handler
// running, such as a crash on the last attempt.
type Expirer interface {
	Expire(ctx context.Context, job *types.JobRun, reason string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	JobType string
	Fn      func(ctx *Context) error
}

func (h HandlerFunc) Type() string           { return h.JobType }
func (h HandlerFunc) Run(ctx *Context) error { return h.Fn(ctx) }

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists registered job types in order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
