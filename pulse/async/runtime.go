package async

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"github.com/teranos/lanes/pulse/lane"
	"github.com/teranos/lanes/pulse/registry"
	"go.uber.org/zap"
)

// Runtime is the process-wide context jobs run in: it owns the execution
// provider, the registry, the job arena and the diagnostic trace. Tests and
// embedders may run several isolated runtimes side by side.
type Runtime struct {
	logger   pulseLogger
	provider *lane.Provider
	reg      *registry.Registry

	// ctx parents every command attempt and is canceled by Close
	ctx    context.Context
	cancel context.CancelFunc

	shutdownTimeout time.Duration

	tracer    atomic.Pointer[zap.Logger]
	traceMu   sync.Mutex
	traceFile io.Closer

	jobsMu sync.RWMutex
	jobs   map[JobID]*Job
	closed bool
}

type runtimeOptions struct {
	logger          *zap.SugaredLogger
	externalMain    bool
	shutdownTimeout time.Duration
	trace           io.Writer
}

// Option configures a Runtime.
type Option func(*runtimeOptions)

// WithLogger sets the runtime's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *runtimeOptions) { o.logger = l }
}

// WithExternalMainLoop leaves the main lane to be driven by RunMain.
func WithExternalMainLoop() Option {
	return func(o *runtimeOptions) { o.externalMain = true }
}

// WithShutdownTimeout bounds Close when its context has no deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *runtimeOptions) { o.shutdownTimeout = d }
}

// WithTrace enables the diagnostic trace on w from the start.
func WithTrace(w io.Writer) Option {
	return func(o *runtimeOptions) { o.trace = w }
}

// NewRuntime creates a runtime with its own provider and registry.
func NewRuntime(opts ...Option) *Runtime {
	o := runtimeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.ComponentLogger("pulse")
	}

	reg := registry.New(o.logger.Named("registry"))
	providerOpts := []lane.Option{
		lane.WithLogger(o.logger.Named("lane")),
		lane.WithLookup(reg),
	}
	if o.externalMain {
		providerOpts = append(providerOpts, lane.WithExternalMainLoop())
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		logger:          pulseLogger{o.logger},
		provider:        lane.NewProvider(providerOpts...),
		reg:             reg,
		ctx:             ctx,
		cancel:          cancel,
		shutdownTimeout: o.shutdownTimeout,
		jobs:            make(map[JobID]*Job),
	}
	if o.trace != nil {
		rt.EnableTrace(o.trace)
	}
	return rt
}

// Provider exposes the execution provider, e.g. to inspect the worker pool.
func (rt *Runtime) Provider() *lane.Provider { return rt.provider }

// Registry exposes the process registry.
func (rt *Runtime) Registry() *registry.Registry { return rt.reg }

// RunMain drives the main lane on the calling goroutine. Only valid for
// runtimes built with WithExternalMainLoop.
func (rt *Runtime) RunMain(ctx context.Context) error {
	return rt.provider.RunMain(ctx)
}

// RegisterLane creates and starts a named serial lane.
func (rt *Runtime) RegisterLane(name string, priority lane.Priority) bool {
	return rt.reg.AddLane(name, priority)
}

// UnregisterLane closes a named lane. Queued work still runs; commands
// launched to it afterwards fail with ErrUnknownLane.
func (rt *Runtime) UnregisterLane(name string) bool {
	return rt.reg.RemoveLane(name)
}

// RegisterTarget adds a target for DispatchTo commands.
func (rt *Runtime) RegisterTarget(t any) bool { return rt.reg.AddTarget(t) }

func (rt *Runtime) UnregisterTarget(t any) bool { return rt.reg.RemoveTarget(t) }

// RegisterHandler adds an event handler for Post commands.
func (rt *Runtime) RegisterHandler(h *registry.Handler) bool { return rt.reg.AddHandler(h) }

func (rt *Runtime) UnregisterHandler(h *registry.Handler) bool { return rt.reg.RemoveHandler(h) }

// ActiveJobs returns the IDs of jobs currently Started.
func (rt *Runtime) ActiveJobs() []JobID { return rt.reg.ActiveJobs() }

// Job looks a live job up by ID.
func (rt *Runtime) Job(id JobID) (*Job, bool) {
	return rt.lookup(id)
}

// Jobs returns the number of live jobs.
func (rt *Runtime) Jobs() int {
	rt.jobsMu.RLock()
	defer rt.jobsMu.RUnlock()
	return len(rt.jobs)
}

// EnableTrace starts writing one "<timestamp> <message>" line per state or
// status transition to w, replacing any previous trace destination.
func (rt *Runtime) EnableTrace(w io.Writer) {
	rt.setTrace(w, nil)
}

// DisableTrace stops the diagnostic trace.
func (rt *Runtime) DisableTrace() {
	rt.setTrace(nil, nil)
}

// Tracing reports whether the diagnostic trace is on.
func (rt *Runtime) Tracing() bool {
	return rt.tracer.Load() != nil
}

// setTrace swaps the trace destination. closer, if set, is closed when the
// destination is replaced.
func (rt *Runtime) setTrace(w io.Writer, closer io.Closer) {
	rt.traceMu.Lock()
	defer rt.traceMu.Unlock()

	if w == nil {
		rt.tracer.Store(nil)
	} else {
		rt.tracer.Store(logger.NewTraceLogger(w))
	}
	if rt.traceFile != nil {
		if err := rt.traceFile.Close(); err != nil {
			rt.logger.Warnw("Failed to close trace file", logger.FieldError, err)
		}
	}
	rt.traceFile = closer
}

func (rt *Runtime) tracef(format string, args ...interface{}) {
	if t := rt.tracer.Load(); t != nil {
		t.Info(fmt.Sprintf(format, args...))
	}
}

func (rt *Runtime) register(j *Job) {
	rt.jobsMu.Lock()
	defer rt.jobsMu.Unlock()
	rt.jobs[j.id] = j
}

func (rt *Runtime) forget(id JobID) {
	rt.jobsMu.Lock()
	defer rt.jobsMu.Unlock()
	delete(rt.jobs, id)
}

func (rt *Runtime) lookup(id JobID) (*Job, bool) {
	rt.jobsMu.RLock()
	defer rt.jobsMu.RUnlock()
	j, ok := rt.jobs[id]
	return j, ok
}

// notifyAdvance posts a completion for job id on the completion lane. The
// job is looked up when the notification runs; if it is gone the
// notification is dropped.
func (rt *Runtime) notifyAdvance(id JobID) {
	err := rt.provider.Notify(func() {
		j, ok := rt.lookup(id)
		if !ok {
			rt.tracef("job %s notification dropped: job gone", id)
			return
		}
		j.advance()
	})
	if err != nil {
		rt.logger.Debugw("Completion notification rejected",
			logger.FieldJobID, id.String(),
			logger.FieldError, err)
	}
}

// mustResolve panics if sel names a lane that is not registered.
func (rt *Runtime) mustResolve(sel lane.Selector) {
	if sel.Kind() != lane.KindTagged {
		return
	}
	if _, ok := rt.reg.Lane(sel.Name()); !ok {
		panic(errors.WithAssertionFailure(errors.NewUnknownLaneError(sel.Name())))
	}
}

// Close ejects every job, cancels commands in flight, then shuts the
// provider and the registry's lanes down, waiting for queued work or ctx.
// Without a deadline on ctx the configured shutdown timeout applies.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.jobsMu.Lock()
	if rt.closed {
		rt.jobsMu.Unlock()
		return nil
	}
	rt.closed = true
	jobs := make([]*Job, 0, len(rt.jobs))
	for _, j := range rt.jobs {
		jobs = append(jobs, j)
	}
	rt.jobsMu.Unlock()

	if _, ok := ctx.Deadline(); !ok && rt.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.shutdownTimeout)
		defer cancel()
	}

	rt.logger.Pulse("Runtime closing", logger.FieldCount, len(jobs))
	for _, j := range jobs {
		j.Close()
	}
	rt.cancel()

	err := errors.CombineErrors(
		rt.provider.Close(ctx),
		rt.reg.Close(ctx),
	)
	rt.setTrace(nil, nil)
	return err
}
