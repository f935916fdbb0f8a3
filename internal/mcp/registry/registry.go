package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"slicer/internal/mcp/contracts"
)

// Handler serves one operation. input is the typed value produced by the
// argument validator.
type Handler func(ctx context.Context, input any) (any, error)

type Registry struct {
	mu       sync.RWMutex
	handlers map[contracts.OperationID]Handler
}

func New() *Registry {
	return &Registry{handlers: make(map[contracts.OperationID]Handler)}
}

func (r *Registry) Register(id contracts.OperationID, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if id == "" {
		return fmt.Errorf("operation id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[id]; exists {
		return fmt.Errorf("operation already registered: %s", id)
	}
	r.handlers[id] = handler
	return nil
}

func (r *Registry) HandlerFor(id contracts.OperationID) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[id]
	return h, ok
}

// Operations lists the registered ids, sorted.
func (r *Registry) Operations() []contracts.OperationID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contracts.OperationID, 0, len(r.handlers))
	for id := range r.handlers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
