package async

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	lanestest "github.com/teranos/lanes/internal/testing"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt := NewRuntime(append([]Option{WithLogger(lanestest.Logger(t))}, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), lanestest.WaitFor)
		defer cancel()
		assert.NoError(t, rt.Close(ctx))
	})
	return rt
}

func waitState(t *testing.T, j *Job, want State) {
	t.Helper()
	lanestest.Eventually(t, func() bool { return j.State() == want },
		"job never reached %s (now %s)", want, j.State())
}

// gate blocks an action until released and tells the test when it entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) action(then func()) Action {
	return func(ctx context.Context) error {
		close(g.entered)
		<-g.release
		if then != nil {
			then()
		}
		return nil
	}
}

func (g *gate) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(lanestest.WaitFor):
		t.Fatal("gated action never started")
	}
}

func (g *gate) open() { close(g.release) }

func record(rec *lanestest.Recorder, name string) Action {
	return func(context.Context) error {
		rec.Add(name)
		return nil
	}
}

func statuses(j *Job) []Status {
	var out []Status
	for _, c := range j.Commands() {
		out = append(out, c.Status)
	}
	return out
}

func capturePanic(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}
