package chain

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse/async"
	"github.com/teranos/lanes/pulse/lane"
)

// StepResult is what happened to one step.
type StepResult struct {
	Name     string
	Kind     lane.Kind
	Selector string
	Attempts int
	Done     bool
	Err      error
	Duration time.Duration
}

// Run is a chain dispatched onto a job.
type Run struct {
	chain *Chain
	job   *async.Job

	mu      sync.Mutex
	results []StepResult
}

// Start registers the lanes the chain names, creates an Auto job with opts
// and dispatches every step to it.
func Start(rt *async.Runtime, c *Chain, opts ...async.JobOption) (*Run, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	r := &Run{chain: c, results: make([]StepResult, len(c.Steps))}
	for i, s := range c.Steps {
		sel := s.Selector()
		r.results[i] = StepResult{Name: s.Name, Kind: sel.Kind(), Selector: sel.String()}
		if sel.Kind() == lane.KindTagged {
			p, _ := lane.ParsePriority(s.Priority)
			rt.RegisterLane(s.Lane, p)
		}
	}

	r.job = rt.NewJob(async.Auto, opts...)
	for i, s := range c.Steps {
		r.job.DispatchAfter(s.Selector(), time.Duration(s.DelayMS)*time.Millisecond, r.action(i))
	}
	return r, nil
}

// Job returns the job running the chain.
func (r *Run) Job() *async.Job { return r.job }

// Wait blocks until the chain finishes or ctx ends. Each time the job stops
// on a failed step it is resumed, up to retries times; after that the step's
// error is returned.
func (r *Run) Wait(ctx context.Context, retries int) error {
	log := logger.ComponentLogger("chain")
	for attempt := 0; ; attempt++ {
		if err := r.job.WaitContext(ctx); err != nil {
			return errors.Wrap(err, "chain did not finish")
		}

		failure := r.job.LastError()
		if failure == nil {
			return nil
		}
		if attempt >= retries {
			return failure
		}

		log.Infow("Resuming chain after failure",
			"chain", r.chain.Name,
			logger.FieldJobID, r.job.ID().String(),
			logger.FieldCount, attempt+1,
			logger.FieldError, failure)
		r.job.Resume()
	}
}

// Results returns a snapshot of every step's outcome, in chain order.
func (r *Run) Results() []StepResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StepResult(nil), r.results...)
}

func (r *Run) action(i int) async.Action {
	step := r.chain.Steps[i]
	return func(ctx context.Context) error {
		ctx = logger.WithComponent(ctx, "chain")
		r.mu.Lock()
		r.results[i].Attempts++
		attempt := r.results[i].Attempts
		r.mu.Unlock()

		start := time.Now()
		err := r.perform(ctx, step, attempt)

		r.mu.Lock()
		r.results[i].Duration = time.Since(start)
		r.results[i].Err = err
		r.results[i].Done = err == nil
		r.mu.Unlock()

		logger.LoggerFromContext(ctx).Debugw("Step finished",
			"step", step.Name,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
			logger.FieldError, err)
		return err
	}
}

func (r *Run) perform(ctx context.Context, step Step, attempt int) error {
	if step.SleepMS > 0 {
		timer := time.NewTimer(time.Duration(step.SleepMS) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "step %s interrupted", step.Name)
		}
	}
	if attempt <= step.FailTimes {
		return errors.Newf("step %s: simulated failure %d of %d", step.Name, attempt, step.FailTimes)
	}
	return nil
}
