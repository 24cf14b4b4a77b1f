package async

import "context"

// Transition describes one lifecycle state change. Err is the error of the
// command at the head of the queue when the change happened.
type Transition struct {
	JobID JobID
	From  State
	To    State
	Err   error
}

// Observer receives lifecycle hooks. Both run with the job lock held: they
// must not block or call back into the job.
type Observer interface {
	WillTransition(t Transition)
	DidTransition(t Transition)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Will func(t Transition)
	Did  func(t Transition)
}

func (o ObserverFuncs) WillTransition(t Transition) {
	if o.Will != nil {
		o.Will(t)
	}
}

func (o ObserverFuncs) DidTransition(t Transition) {
	if o.Did != nil {
		o.Did(t)
	}
}

type nopObserver struct{}

func (nopObserver) WillTransition(Transition) {}
func (nopObserver) DidTransition(Transition)  {}

type executingKey struct{}

// withExecutingJob marks ctx as belonging to a command of job id.
func withExecutingJob(ctx context.Context, id JobID) context.Context {
	return context.WithValue(ctx, executingKey{}, id)
}

func executingJob(ctx context.Context) (JobID, bool) {
	id, ok := ctx.Value(executingKey{}).(JobID)
	return id, ok
}
