// Package async orchestrates chains of commands. A Job owns an ordered
// queue of commands, each bound to an execution context, and moves through
// a lifecycle state machine as they run: callers can pause, resume,
// interrupt or abort a chain, inspect its latest failure, and wait for it
// to go quiet.
package async

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
)

// JobID identifies a job for its whole lifetime.
type JobID = uuid.UUID

// Job is a FIFO chain of commands driven by the lifecycle table.
//
// Every public method and every completion callback holds the job lock for
// its full, non-blocking duration. Only the Wait family blocks, and it does
// so without the lock.
type Job struct {
	id       JobID
	mode     Mode
	rt       *Runtime
	observer Observer
	logger   pulseLogger

	mu     sync.Mutex
	state  State
	queue  []*Command
	lastID CommandID

	// busy latch: held for each Started episode, idle is closed on release
	busy bool
	idle chan struct{}
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithObserver registers lifecycle hooks.
func WithObserver(o Observer) JobOption {
	return func(j *Job) { j.observer = o }
}

// NewJob creates a job in Ejected and moves it straight to Paused (Auto) or
// Stopped (Manual).
func (rt *Runtime) NewJob(mode Mode, opts ...JobOption) *Job {
	j := &Job{
		id:       uuid.New(),
		mode:     mode,
		rt:       rt,
		observer: nopObserver{},
		state:    Ejected,
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = pulseLogger{logger.ChildLogger(rt.logger.SugaredLogger, logger.FieldJobID, j.id.String())}

	rt.register(j)
	rt.tracef("job %s created (%s)", j.id, mode)

	j.mu.Lock()
	defer j.mu.Unlock()
	if mode == Manual {
		j.transition(Stopped)
	} else {
		j.transition(Paused)
	}
	return j
}

func (j *Job) ID() JobID { return j.id }

func (j *Job) Mode() Mode { return j.mode }

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Resume relaunches a stopped chain. It is a no-op in every other state.
func (j *Job) Resume() {
	j.mu.Lock()
	defer j.mu.Unlock()
	lifecycle[j.state].resume(j)
}

// Suspend stops the chain after the command in flight. Commands that have
// not begun running are marked suspended and resume later.
func (j *Job) Suspend() {
	j.mu.Lock()
	defer j.mu.Unlock()
	lifecycle[j.state].suspend(j)
}

// Cancel aborts every pending command and drains the queue. A command that
// is already executing finishes; its context is canceled.
//
// Cancel never leaves the job Stopped. From Started it stays Started until
// the command in flight reports back and then settles in Paused, so later
// dispatches run without a Resume. From Stopped it stays Stopped.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	lifecycle[j.state].cancel(j)
}

// Close disposes of the job: it moves to Ejected, releases any waiters and
// leaves the runtime. Completions of commands still in flight are dropped.
func (j *Job) Close() {
	j.mu.Lock()
	if j.state != Ejected {
		j.transition(Ejected)
	}
	j.mu.Unlock()

	j.rt.forget(j.id)
	j.rt.tracef("job %s disposed", j.id)
}

// HasCommands reports whether any command is queued.
func (j *Job) HasCommands() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.queue) > 0
}

// LastError returns the error of the command at the head of the queue, which
// after a failure is the command that failed.
func (j *Job) LastError() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.headErr()
}

// Commands returns a snapshot of the queue.
func (j *Job) Commands() []CommandInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	infos := make([]CommandInfo, 0, len(j.queue))
	for _, c := range j.queue {
		infos = append(infos, c.info())
	}
	return infos
}

// Wait blocks until the job is not busy. Calling Wait from one of the job's
// own commands deadlocks; use WaitContext there.
func (j *Job) Wait() {
	if ch := j.idleChan(); ch != nil {
		<-ch
	}
}

// WaitTimeout waits up to d for the job to go idle and reports whether it
// did. A job that is not busy, or a non-positive d, returns true at once.
// The latch is only observed, never taken.
func (j *Job) WaitTimeout(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	ch := j.idleChan()
	if ch == nil {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}

// WaitContext waits until the job is idle or ctx ends. Called from inside
// one of the job's own commands it returns ErrWaitOnSelf instead of
// deadlocking.
func (j *Job) WaitContext(ctx context.Context) error {
	if id, ok := executingJob(ctx); ok && id == j.id {
		return errors.WithDetail(errors.ErrWaitOnSelf, "Job ID: "+j.id.String())
	}
	ch := j.idleChan()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) idleChan() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.busy {
		return nil
	}
	return j.idle
}

// advance is the completion callback; it runs on the provider's completion lane.
func (j *Job) advance() {
	j.mu.Lock()
	defer j.mu.Unlock()
	lifecycle[j.state].advance(j)
}

func (j *Job) dispatch(c *Command) {
	j.mu.Lock()
	defer j.mu.Unlock()
	c.id = j.nextCommandID()
	lifecycle[j.state].dispatch(j, c)
}

// nextCommandID wraps from MaxUint32 to 1; zero is never issued.
func (j *Job) nextCommandID() CommandID {
	if j.lastID == math.MaxUint32 {
		j.lastID = 1
	} else {
		j.lastID++
	}
	return j.lastID
}

// transition swaps the state and runs the entry actions of the new one.
// Observer hooks run with the job lock held.
func (j *Job) transition(to State) {
	t := Transition{JobID: j.id, From: j.state, To: to, Err: j.headErr()}

	j.observer.WillTransition(t)
	j.state = to
	j.rt.tracef("job %s state %s -> %s", j.id, t.From, to)

	switch to {
	case Started:
		j.acquire()
		j.rt.reg.AddActive(j.id)
		j.observer.DidTransition(t)
		if t.From != Finished {
			j.logger.Starting("Job started", logger.FieldFrom, t.From.String())
		}
	case Finished, Interrupted:
		j.observer.DidTransition(t)
	case Paused, Stopped, Ejected:
		j.observer.DidTransition(t)
		j.rt.reg.RemoveActive(j.id)
		j.release()
		if to == Stopped && t.Err != nil {
			j.logger.Closing("Job stopped on failure", logger.FieldError, t.Err)
		}
	}
}

func (j *Job) acquire() {
	if j.busy {
		return
	}
	j.busy = true
	j.idle = make(chan struct{})
}

func (j *Job) release() {
	if !j.busy {
		return
	}
	j.busy = false
	close(j.idle)
}

func (j *Job) head() *Command {
	if len(j.queue) == 0 {
		return nil
	}
	return j.queue[0]
}

func (j *Job) headErr() error {
	if h := j.head(); h != nil {
		return h.Err()
	}
	return nil
}

func (j *Job) headEligible() bool {
	h := j.head()
	return h != nil && h.Status().eligible()
}

func (j *Job) launchHead() {
	j.queue[0].launch()
}

// drain pops finished commands off the head of the queue.
func (j *Job) drain() {
	for len(j.queue) > 0 && j.queue[0].Status().drainable() {
		c := j.queue[0]
		j.queue[0] = nil
		j.queue = j.queue[1:]
		j.rt.tracef("job %s command %d drained (%s)", j.id, c.id, c.Status())
	}
}

// postAdvance queues an advance for a job whose launched head was
// preempted before it ran and so will never report back itself.
func (j *Job) postAdvance() {
	j.rt.notifyAdvance(j.id)
}
