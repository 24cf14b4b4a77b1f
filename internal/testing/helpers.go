// Package testing holds helpers shared by lanes tests.
package testing

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Default polling for asynchronous assertions.
const (
	WaitFor = 2 * time.Second
	Tick    = 5 * time.Millisecond
)

// Logger returns a sugared logger that writes to t.Log.
func Logger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zaptest.NewLogger(t).Sugar()
}

// Eventually fails the test if cond does not hold within WaitFor.
func Eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, WaitFor, Tick, msgAndArgs...)
}

// Never fails the test if cond holds at any point within d.
func Never(t *testing.T, cond func() bool, d time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	require.Never(t, cond, d, Tick, msgAndArgs...)
}

// Buffer is an io.Writer safe for concurrent use, for capturing trace output.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far.
func (b *Buffer) Lines() []string {
	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Recorder collects strings from concurrent writers in arrival order.
type Recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *Recorder) Add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, s)
}

func (r *Recorder) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
