package processor

import (
	"context"
	"sort"

	"lawfeed/internal/feed"
)

// Handler applies one fragment to downstream records.
type Handler interface {
	Process(ctx context.Context, fragment *feed.Fragment) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, fragment *feed.Fragment) error

// Process calls f.
func (f HandlerFunc) Process(ctx context.Context, fragment *feed.Fragment) error {
	return f(ctx, fragment)
}

// Registry resolves the handler for a fragment type.
type Registry struct {
	handlers map[feed.FragmentType]Handler
}

// NewRegistry copies handlers into an immutable registry. Nil handlers are
// skipped.
func NewRegistry(handlers map[feed.FragmentType]Handler) *Registry {
	copied := make(map[feed.FragmentType]Handler, len(handlers))
	for fragmentType, handler := range handlers {
		if handler == nil {
			continue
		}
		copied[fragmentType] = handler
	}
	return &Registry{handlers: copied}
}

// Resolve returns the handler registered for fragmentType.
func (r *Registry) Resolve(fragmentType feed.FragmentType) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	handler, ok := r.handlers[fragmentType]
	return handler, ok
}

// Types lists the registered fragment types in catalog order.
func (r *Registry) Types() []feed.FragmentType {
	if r == nil {
		return nil
	}
	order := make(map[feed.FragmentType]int)
	for i, fragmentType := range feed.AllTypes() {
		order[fragmentType] = i
	}
	types := make([]feed.FragmentType, 0, len(r.handlers))
	for fragmentType := range r.handlers {
		types = append(types, fragmentType)
	}
	sort.Slice(types, func(i, j int) bool { return order[types[i]] < order[types[j]] })
	return types
}

// Without returns a registry lacking the given types.
func (r *Registry) Without(types ...feed.FragmentType) *Registry {
	if r == nil {
		return NewRegistry(nil)
	}
	drop := make(map[feed.FragmentType]struct{}, len(types))
	for _, fragmentType := range types {
		drop[fragmentType] = struct{}{}
	}
	kept := make(map[feed.FragmentType]Handler, len(r.handlers))
	for fragmentType, handler := range r.handlers {
		if _, ok := drop[fragmentType]; ok {
			continue
		}
		kept[fragmentType] = handler
	}
	return NewRegistry(kept)
}
