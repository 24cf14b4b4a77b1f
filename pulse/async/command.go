package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse/lane"
)

// CommandID is unique within a job.
type CommandID uint32

// Action is the plain command payload.
type Action func(ctx context.Context) error

// Command is one unit of a job's chain. It refers to its job by ID only and
// looks it up in the runtime when it reports back.
type Command struct {
	id    CommandID
	jobID JobID
	rt    *Runtime
	sel   lane.Selector
	delay time.Duration
	body  payload

	mu      sync.Mutex
	status  Status
	lastErr error
	attempt uint32
	handle  *lane.Handle
	stop    context.CancelFunc // cancels the context of the current attempt
}

// CommandInfo is a snapshot of a queued command.
type CommandInfo struct {
	ID       CommandID
	Kind     string
	Selector lane.Selector
	Delay    time.Duration
	Status   Status
	Err      error
}

func newCommand(j *Job, sel lane.Selector, delay time.Duration, body payload) *Command {
	return &Command{
		jobID:  j.id,
		rt:     j.rt,
		sel:    sel,
		delay:  delay,
		body:   body,
		status: StatusReady,
	}
}

func (c *Command) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err is the error of the latest attempt, cleared when an attempt starts.
func (c *Command) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Command) info() CommandInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CommandInfo{
		ID:       c.id,
		Kind:     c.body.kind(),
		Selector: c.sel,
		Delay:    c.delay,
		Status:   c.status,
		Err:      c.lastErr,
	}
}

// setStatus must be called with c.mu held.
func (c *Command) setStatus(s Status) {
	if c.status == s {
		return
	}
	c.rt.tracef("job %s command %d status %s -> %s", c.jobID, c.id, c.status, s)
	c.status = s
}

// launch hands a new attempt to the execution provider. It runs with the
// job lock held and never blocks.
func (c *Command) launch() {
	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	if c.stop != nil {
		c.stop()
	}
	ctx, stop := context.WithCancel(c.rt.ctx)
	c.stop = stop
	c.handle = nil
	c.setStatus(StatusLaunched)
	c.mu.Unlock()

	c.rt.logger.Debugw("Launching command",
		logger.FieldJobID, c.jobID.String(),
		logger.FieldCommandID, uint32(c.id),
		logger.FieldLane, c.sel.String(),
		logger.FieldDelayMS, c.delay.Milliseconds())

	h, err := c.rt.provider.SubmitUnit(lane.Unit{
		Selector: c.sel,
		Delay:    c.delay,
		Run:      func() { defer stop(); c.run(ctx, attempt) },
		Reject:   func(err error) { c.reject(attempt, err) },
	})
	if err != nil {
		c.reject(attempt, err)
		return
	}

	c.mu.Lock()
	if c.attempt == attempt {
		c.handle = h
	}
	c.mu.Unlock()
}

// run executes the payload unless the attempt was suspended or canceled
// before it began, in which case nothing is reported.
func (c *Command) run(ctx context.Context, attempt uint32) {
	c.mu.Lock()
	if c.status != StatusLaunched || c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.lastErr = nil
	c.setStatus(StatusExecuting)
	c.mu.Unlock()

	start := time.Now()
	err := c.execute(ctx)

	c.mu.Lock()
	if err != nil {
		c.lastErr = err
		c.setStatus(StatusFailed)
	} else {
		c.setStatus(StatusSucceeded)
	}
	c.mu.Unlock()

	if err != nil {
		c.rt.logger.Pulse("Command failed",
			logger.FieldJobID, c.jobID.String(),
			logger.FieldCommandID, uint32(c.id),
			logger.FieldLane, c.sel.String(),
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
			logger.FieldError, err)
	}
	c.rt.notifyAdvance(c.jobID)
}

// reject fails an attempt that never reached its execution context.
func (c *Command) reject(attempt uint32, err error) {
	c.mu.Lock()
	if c.status != StatusLaunched || c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.lastErr = errors.WithDetailf(err, "Job ID: %s, Command: %d", c.jobID, c.id)
	c.setStatus(StatusFailed)
	c.mu.Unlock()

	c.rt.notifyAdvance(c.jobID)
}

func (c *Command) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithDetailf(
				errors.Wrapf(errors.ErrCommandPanic, "%v", r),
				"Job ID: %s, Command: %d", c.jobID, c.id)
		}
	}()

	ctx = withExecutingJob(ctx, c.jobID)
	ctx = logger.WithJobID(ctx, c.jobID.String())
	ctx = logger.WithCommandID(ctx, uint32(c.id))
	if err := c.body.run(ctx, c.rt.reg); err != nil {
		return errors.WithDetailf(err, "Job ID: %s, Command: %d, Lane: %s", c.jobID, c.id, c.sel)
	}
	return nil
}

// suspend marks the command suspended. Work already executing is not
// interrupted. It reports whether a launched attempt was preempted before
// it ran.
func (c *Command) suspend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.cancelable() || c.status == StatusSuspended {
		return false
	}
	preempted := c.status == StatusLaunched
	if preempted && c.handle != nil {
		c.handle.Cancel()
	}
	c.setStatus(StatusSuspended)
	return preempted
}

// cancel marks the command canceled, prevents a pending attempt and cancels
// the context of a running one. It reports whether a launched attempt was
// preempted before it ran.
func (c *Command) cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.status.cancelable() {
		return false
	}
	preempted := c.status == StatusLaunched
	if c.handle != nil {
		c.handle.Cancel()
	}
	if c.stop != nil {
		c.stop()
	}
	c.setStatus(StatusCanceled)
	return preempted
}

func (c *Command) String() string {
	return fmt.Sprintf("command %d (%s on %s)", c.id, c.body.kind(), c.sel)
}
