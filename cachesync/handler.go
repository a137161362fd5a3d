package cachesync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/cachesync/errors"
)

// Handler applies change messages of one entity type to the cache.
//
// HydrateOne re-fetches the entity and writes it to the cache.
// InvalidateOne removes it. Has reports whether the cache already holds
// the entity. At least one of HydrateOne and InvalidateOne must be set.
// Handlers are called with a context that is not cancelled by a channel
// switch, so a call in flight runs to completion.
type Handler struct {
	EntityType    EntityType
	HydrateOne    func(ctx context.Context, channelID, id string) error
	InvalidateOne func(ctx context.Context, channelID, id string) error
	Has           func(ctx context.Context, channelID, id string) (bool, error)
}

// Registry maps entity types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[EntityType]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[EntityType]Handler)}
}

// Register adds h. A later registration for the same entity type replaces
// the earlier one.
func (r *Registry) Register(h Handler) error {
	if h.EntityType == "" {
		return errors.InvalidInput("entity_type", "handler entity type is required")
	}
	if h.HydrateOne == nil && h.InvalidateOne == nil {
		return errors.InvalidInput("handler", fmt.Sprintf("handler for %q needs HydrateOne or InvalidateOne", h.EntityType))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.EntityType] = h
	return nil
}

// Lookup returns the handler for t.
func (r *Registry) Lookup(t EntityType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered entity types in sorted order.
func (r *Registry) Types() []EntityType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EntityType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
