package lane

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teranos/lanes/errors"
	"github.com/teranos/lanes/logger"
	"go.uber.org/zap"
)

// Pool runs priority-class work, one goroutine per unit.
// It is unbounded; classes are counted but never preempt one another.
type Pool struct {
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	running   atomic.Int64
	submitted [numPriorities]atomic.Uint64
}

// NewPool creates an open pool.
func NewPool(log *zap.SugaredLogger) *Pool {
	if log == nil {
		log = logger.ComponentLogger("pulse.pool")
	}
	return &Pool{logger: log}
}

// Submit runs fn on a new goroutine tagged with class p.
func (p *Pool) Submit(class Priority, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.Wrapf(errors.ErrProviderClosed, "worker pool closed (class %s)", class)
	}
	if int(class) >= 0 && int(class) < len(p.submitted) {
		p.submitted[class].Add(1)
	}

	p.wg.Add(1)
	p.running.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Errorw("Unit panicked in worker pool",
					logger.FieldPriority, class.String(),
					logger.FieldError, fmt.Sprint(r))
			}
		}()
		fn()
	}()
	return nil
}

// Running returns the number of units currently executing.
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// Submitted returns how many units were ever submitted to class.
func (p *Pool) Submitted(class Priority) uint64 {
	if int(class) < 0 || int(class) >= len(p.submitted) {
		return 0
	}
	return p.submitted[class].Load()
}

// Close stops accepting work and waits for running units or ctx.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(errors.ErrTimeout, "worker pool: %d units still running", p.Running())
	}
}
