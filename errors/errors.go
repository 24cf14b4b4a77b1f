// Package errors provides error handling for lanes.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//   - Assertion failures for caller misuse
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Add details for operators
//	err = errors.WithDetail(err, "Lane: io")
//
//	// Check errors
//	if errors.Is(err, errors.ErrUnknownLane) {
//	    // register the lane first
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenDetails = crdb.FlattenDetails
)

// Assertions and panics
var (
	AssertionFailedf     = crdb.AssertionFailedf
	WithAssertionFailure = crdb.WithAssertionFailure
	HasAssertionFailure  = crdb.HasAssertionFailure
)

// Sentinel errors for use across lanes.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrUnknownLane indicates a selector names a lane that was never registered
	ErrUnknownLane = New("unknown lane")

	// ErrProviderClosed indicates work was submitted after the provider shut down
	ErrProviderClosed = New("execution provider closed")

	// ErrCommandPanic indicates a command payload panicked
	ErrCommandPanic = New("command panicked")

	// ErrWaitOnSelf indicates a job was awaited from inside one of its own commands
	ErrWaitOnSelf = New("job awaited from its own command")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// IsUnknownLaneError checks if an error is or wraps ErrUnknownLane
func IsUnknownLaneError(err error) bool {
	return err != nil && Is(err, ErrUnknownLane)
}

// NewUnknownLaneError creates an unknown-lane error naming the lane
func NewUnknownLaneError(name string) error {
	err := Wrapf(ErrUnknownLane, "lane %q", name)
	return WithHint(err, "register the lane before dispatching to it")
}
