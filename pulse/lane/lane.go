package lane

import (
	"context"
	"fmt"
	"sync"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"go.uber.org/zap"
)

// Lane is a serial FIFO executor with an unbounded queue.
// Units run one at a time, in submission order, on whichever goroutine
// drives the lane: Run drives it on the caller's goroutine, Start on an
// owned one.
type Lane struct {
	name     string
	priority Priority
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	queue   []func()
	closed  bool
	running bool

	wake     chan struct{} // capacity 1, signalled on submit and close
	done     chan struct{} // closed once a driver drains a closed lane
	doneOnce sync.Once
}

// NewLane creates an idle lane. Nothing runs until Run or Start drives it.
func NewLane(name string, priority Priority, log *zap.SugaredLogger) *Lane {
	if log == nil {
		log = logger.ComponentLogger("pulse.lane")
	}
	return &Lane{
		name:     name,
		priority: priority,
		logger:   log.With(logger.FieldLane, name),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (l *Lane) Name() string { return l.name }

func (l *Lane) Priority() Priority { return l.priority }

// Submit appends fn to the queue.
func (l *Lane) Submit(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.Wrapf(errors.ErrProviderClosed, "lane %q closed", l.name)
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return nil
}

// Len returns the number of queued units.
func (l *Lane) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run drives the lane on the calling goroutine until ctx is done or the lane
// is closed and drained. It returns ctx.Err() in the first case and nil in
// the second. Only one driver may run at a time.
func (l *Lane) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.AssertionFailedf("lane %q already has a driver", l.name)
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		fn, closed := l.next()
		if fn != nil {
			l.invoke(fn)
			continue
		}
		if closed {
			l.doneOnce.Do(func() { close(l.done) })
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Start drives the lane on a new goroutine.
func (l *Lane) Start() {
	go func() {
		if err := l.Run(context.Background()); err != nil {
			l.logger.Errorw("Lane driver exited", logger.FieldError, err)
		}
	}()
}

// Close stops accepting work. Queued units still run; Done is closed once
// the driver has drained them. Close is idempotent.
func (l *Lane) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	l.signal()
}

// Done is closed when a driver has drained the closed lane.
func (l *Lane) Done() <-chan struct{} {
	return l.done
}

func (l *Lane) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Lane) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, l.closed
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, false
}

// invoke runs one unit; a panicking unit is logged and the lane keeps going.
func (l *Lane) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorw("Unit panicked on lane", logger.FieldError, fmt.Sprint(r))
		}
	}()
	fn()
}
