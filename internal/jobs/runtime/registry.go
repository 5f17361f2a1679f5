package runtime

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Handler runs one job type. Returning an error without calling Fail or
// Succeed lets the worker record the failure.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

var errNilHandler = errors.New("nil handler")

// Registry maps job_type to its handler. Registration is all-or-nothing per
// call.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: map[string]Handler{}}
}

func (r *Registry) Register(hs ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]Handler, len(hs))
	for _, h := range hs {
		if h == nil {
			return errNilHandler
		}
		jobType := strings.TrimSpace(h.Type())
		if jobType == "" {
			return fmt.Errorf("handler %T has an empty job type", h)
		}
		_, taken := r.byType[jobType]
		if _, dup := staged[jobType]; taken || dup {
			return fmt.Errorf("job_type %q already has a handler", jobType)
		}
		staged[jobType] = h
	}
	for jobType, h := range staged {
		r.byType[jobType] = h
	}
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.byType[jobType]
	r.mu.RUnlock()
	return h, ok
}

// Types lists registered job types in order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byType))
	for jobType := range r.byType {
		names = append(names, jobType)
	}
	slices.Sort(names)
	return names
}
