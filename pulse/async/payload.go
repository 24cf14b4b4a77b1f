package async

import (
	"context"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/pulse/registry"
)

// payload is what a command runs. Exactly one variant per command.
type payload interface {
	run(ctx context.Context, reg *registry.Registry) error
	kind() string
}

type actionPayload struct {
	fn Action
}

func (p actionPayload) run(ctx context.Context, _ *registry.Registry) error {
	return p.fn(ctx)
}

func (actionPayload) kind() string { return "action" }

// targetPayload runs fn once per registered target of type T, in
// registration order. The first error ends the run.
type targetPayload[T any] struct {
	fn func(ctx context.Context, target T) error
}

func (p targetPayload[T]) run(ctx context.Context, reg *registry.Registry) error {
	for _, t := range reg.Targets() {
		v, ok := t.(T)
		if !ok {
			continue
		}
		if err := p.fn(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (targetPayload[T]) kind() string { return "target" }

// eventPayload delivers event to every handler declared for E, in
// registration order. The first error ends the run.
type eventPayload[E any] struct {
	event E
}

func (p eventPayload[E]) run(ctx context.Context, reg *registry.Registry) error {
	for _, h := range reg.Handlers() {
		if _, err := registry.Deliver(ctx, h, p.event); err != nil {
			return errors.Wrapf(err, "handler %s", h.Name())
		}
	}
	return nil
}

func (eventPayload[E]) kind() string { return "event" }
