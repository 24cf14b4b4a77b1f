package lane

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"go.uber.org/zap"
)

// CompletionLaneName names the serial lane completion notifications run on.
const CompletionLaneName = "completion"

// Lookup resolves caller-registered lanes by name.
type Lookup interface {
	Lane(name string) (*Lane, bool)
}

// Unit is a deferred unit of work.
type Unit struct {
	Selector Selector
	Delay    time.Duration
	Run      func()

	// Reject, when set, is called if a delayed unit cannot be delivered to
	// its execution context once the delay elapses (unknown lane, provider
	// closed). Synchronous rejections are returned by Submit instead.
	Reject func(error)
}

// Provider hands units of work to execution contexts: the main loop, the
// worker pool, or a named serial lane.
type Provider struct {
	logger *zap.SugaredLogger

	pool       *Pool
	main       *Lane
	completion *Lane
	lanes      Lookup

	externalMain bool

	mu      sync.Mutex
	closed  bool
	pending map[*Handle]struct{} // delayed units whose timer has not fired
}

// Option configures a Provider.
type Option func(*Provider)

// WithExternalMainLoop leaves the main lane undriven; the caller drives it
// with RunMain.
func WithExternalMainLoop() Option {
	return func(p *Provider) { p.externalMain = true }
}

// WithLogger sets the provider's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithLookup sets where Tagged selectors are resolved.
func WithLookup(l Lookup) Option {
	return func(p *Provider) { p.lanes = l }
}

// NewProvider creates a provider and starts its owned lanes.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{pending: make(map[*Handle]struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("pulse.provider")
	}

	p.pool = NewPool(p.logger.Named("pool"))
	p.main = NewLane(MainLaneName, High, p.logger)
	p.completion = NewLane(CompletionLaneName, High, p.logger)

	if !p.externalMain {
		p.main.Start()
	}
	p.completion.Start()
	return p
}

// Pool returns the worker pool.
func (p *Provider) Pool() *Pool { return p.pool }

// Main returns the main lane.
func (p *Provider) Main() *Lane { return p.main }

// ExternalMainLoop reports whether the caller drives the main lane.
func (p *Provider) ExternalMainLoop() bool { return p.externalMain }

// RunMain drives the main lane on the calling goroutine until ctx is done
// or the provider is closed. Only valid with WithExternalMainLoop.
func (p *Provider) RunMain(ctx context.Context) error {
	if !p.externalMain {
		return errors.AssertionFailedf("main loop is owned by the provider")
	}
	return p.main.Run(ctx)
}

// Submit is shorthand for SubmitUnit without a Reject callback.
func (p *Provider) Submit(sel Selector, delay time.Duration, fn func()) (*Handle, error) {
	return p.SubmitUnit(Unit{Selector: sel, Delay: delay, Run: fn})
}

// SubmitUnit schedules u. With no delay the unit is handed to its context
// immediately and a delivery failure is returned. With a delay the context is
// resolved when the timer fires.
func (p *Provider) SubmitUnit(u Unit) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.ErrProviderClosed
	}
	p.mu.Unlock()

	h := newHandle()
	run := func() { h.run(u.Run) }

	if u.Delay <= 0 {
		if err := p.deliver(u.Selector, run); err != nil {
			return nil, err
		}
		return h, nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.ErrProviderClosed
	}
	p.pending[h] = struct{}{}
	forget := func() {
		p.mu.Lock()
		delete(p.pending, h)
		p.mu.Unlock()
	}
	h.setTimer(time.AfterFunc(u.Delay, func() {
		forget()

		if h.Canceled() {
			return
		}
		if err := p.deliver(u.Selector, run); err != nil {
			p.logger.Debugw("Delayed unit rejected",
				logger.FieldLane, u.Selector.String(),
				logger.FieldError, err)
			if u.Reject != nil {
				u.Reject(err)
			}
		}
	}), forget)
	p.mu.Unlock()
	return h, nil
}

// PendingDelayed counts delayed units whose timer has neither fired nor
// been canceled.
func (p *Provider) PendingDelayed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Notify runs fn on the completion lane. Completion callbacks therefore run
// one at a time, in submission order.
func (p *Provider) Notify(fn func()) error {
	return p.completion.Submit(fn)
}

func (p *Provider) deliver(sel Selector, run func()) error {
	switch sel.Kind() {
	case KindMain:
		return p.main.Submit(run)
	case KindTagged:
		if p.lanes == nil {
			return errors.NewUnknownLaneError(sel.Name())
		}
		l, ok := p.lanes.Lane(sel.Name())
		if !ok {
			return errors.NewUnknownLaneError(sel.Name())
		}
		return l.Submit(run)
	default:
		return p.pool.Submit(sel.Priority(), run)
	}
}

// Close cancels pending delayed units, lets queued work finish, and waits
// for the owned lanes and the pool, or ctx. Tagged lanes belong to their
// Lookup and are not closed here.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pending := make([]*Handle, 0, len(p.pending))
	for h := range p.pending {
		pending = append(pending, h)
	}
	p.pending = make(map[*Handle]struct{})
	p.mu.Unlock()

	for _, h := range pending {
		h.Cancel()
	}

	p.main.Close()
	if !p.externalMain {
		if err := waitDone(ctx, p.main); err != nil {
			return err
		}
	}
	if err := p.pool.Close(ctx); err != nil {
		return err
	}

	// Completions posted by the last main and pool units are still delivered.
	p.completion.Close()
	return waitDone(ctx, p.completion)
}

func waitDone(ctx context.Context, l *Lane) error {
	select {
	case <-l.Done():
		return nil
	case <-ctx.Done():
		return errors.Wrapf(errors.ErrTimeout, "lane %q: %d units still queued", l.Name(), l.Len())
	}
}
