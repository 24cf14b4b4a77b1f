package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithDetail(t *testing.T) {
	err := WithDetail(New("launch failed"), "Lane: io")

	details := GetAllDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "Lane: io", details[0])
	assert.Equal(t, "launch failed", err.Error(), "details stay out of the message")
}

func TestUnknownLaneError(t *testing.T) {
	err := NewUnknownLaneError("io")

	assert.True(t, IsUnknownLaneError(err))
	assert.True(t, Is(err, ErrUnknownLane))
	assert.Contains(t, err.Error(), `lane "io"`)
	assert.Contains(t, GetAllHints(err), "register the lane before dispatching to it")

	assert.False(t, IsUnknownLaneError(nil))
	assert.False(t, IsUnknownLaneError(ErrTimeout))
}

func TestSentinelsSurviveFmtWrapping(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", ErrProviderClosed)
	assert.True(t, Is(err, ErrProviderClosed))
	assert.False(t, Is(err, ErrCommandPanic))
}

func TestAssertionFailure(t *testing.T) {
	err := WithAssertionFailure(NewUnknownLaneError("db"))

	assert.True(t, HasAssertionFailure(err))
	assert.True(t, Is(err, ErrUnknownLane))
}
