package async

import (
	"context"
	"time"

	"github.com/teranos/lanes/pulse/lane"
)

// Dispatch appends an action bound to sel. Dispatching to a lane that is not
// registered is a programming error and panics.
func (j *Job) Dispatch(sel lane.Selector, action Action) *Job {
	return j.DispatchAfter(sel, 0, action)
}

// DispatchAfter is Dispatch with a scheduling delay applied at launch.
func (j *Job) DispatchAfter(sel lane.Selector, delay time.Duration, action Action) *Job {
	return j.add(sel, delay, actionPayload{fn: action})
}

// DispatchTo appends a command that calls fn once for every registered
// target of type T.
//
// Example:
//
//	async.DispatchTo(job, lane.Tagged("db"), 0, func(ctx context.Context, c *Cache) error {
//	    return c.Flush(ctx)
//	})
func DispatchTo[T any](j *Job, sel lane.Selector, delay time.Duration, fn func(ctx context.Context, target T) error) *Job {
	return j.add(sel, delay, targetPayload[T]{fn: fn})
}

// Post appends a command that delivers event to every registered handler
// declared for E.
func Post[E any](j *Job, sel lane.Selector, delay time.Duration, event E) *Job {
	return j.add(sel, delay, eventPayload[E]{event: event})
}

func (j *Job) add(sel lane.Selector, delay time.Duration, body payload) *Job {
	j.rt.mustResolve(sel)
	j.dispatch(newCommand(j, sel, delay, body))
	return j
}
