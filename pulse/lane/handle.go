package lane

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	handlePending int32 = iota
	handleStarted
	handleCanceled
)

// Handle is a cancelable deferred unit of work returned by Provider.Submit.
type Handle struct {
	state atomic.Int32

	mu       sync.Mutex
	timer    *time.Timer
	onCancel func()
}

func newHandle() *Handle {
	return &Handle{}
}

// Cancel prevents the unit from starting. It reports whether the unit was
// prevented; false means it already began (or was already canceled).
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(handlePending, handleCanceled) {
		return false
	}
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	release := h.onCancel
	h.onCancel = nil
	h.mu.Unlock()

	if release != nil {
		release()
	}
	return true
}

// Started reports whether the unit began running.
func (h *Handle) Started() bool {
	return h.state.Load() == handleStarted
}

// Canceled reports whether Cancel prevented the unit.
func (h *Handle) Canceled() bool {
	return h.state.Load() == handleCanceled
}

// setTimer arms the delayed start. release runs once if Cancel wins.
func (h *Handle) setTimer(t *time.Timer, release func()) {
	h.mu.Lock()
	h.timer = t
	h.onCancel = release
	h.mu.Unlock()
}

// run invokes fn unless the handle was canceled first.
func (h *Handle) run(fn func()) {
	if !h.state.CompareAndSwap(handlePending, handleStarted) {
		return
	}
	fn()
}
