package registry

import "context"

// eventKey identifies an event type without reflection: two keys are equal
// exactly when their type parameters are identical.
type eventKey[E any] struct{}

// Handler reacts to events of a single declared type.
type Handler struct {
	name   string
	key    any
	invoke func(ctx context.Context, event any) error
}

// NewHandler builds a handler for events of type E.
//
// Example:
//
//	h := registry.NewHandler("audit", func(ctx context.Context, e UserDeleted) error {
//	    return audit.Record(ctx, e.ID)
//	})
//	rt.RegisterHandler(h)
func NewHandler[E any](name string, fn func(ctx context.Context, event E) error) *Handler {
	return &Handler{
		name: name,
		key:  eventKey[E]{},
		invoke: func(ctx context.Context, event any) error {
			return fn(ctx, event.(E))
		},
	}
}

func (h *Handler) Name() string { return h.name }

// Handles reports whether h was declared for events of type E.
func Handles[E any](h *Handler) bool {
	return h.key == any(eventKey[E]{})
}

// Deliver invokes h with event if h was declared for E. It reports whether
// the handler matched.
func Deliver[E any](ctx context.Context, h *Handler, event E) (bool, error) {
	if !Handles[E](h) {
		return false, nil
	}
	return true, h.invoke(ctx, event)
}
