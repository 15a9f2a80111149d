// Package errors provides error handling for courier.
//
// It re-exports github.com/cockroachdb/errors so the rest of the codebase
// gets stack traces, wrapping, and errors.Is/As semantics from a single
// import, plus the sentinel errors used to classify delivery failures.
//
// Usage:
//
//	if err := store.AdvanceNextRun(id, next); err != nil {
//	    return errors.Wrap(err, "failed to advance schedule")
//	}
//
//	if errors.Is(err, errors.ErrJobNotSendable) {
//	    // configuration failure, do not retry
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithMessage = crdb.WithMessage
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors for use across courier.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrJobNotSendable indicates a job is structurally unsendable (missing
	// template, incomplete template, blank sender or recipients). Delivery
	// must fail fast: retrying cannot fix the job's configuration.
	ErrJobNotSendable = New("job not sendable")

	// ErrDeliveryFailed indicates a transport-level send failure. Delivery
	// may retry up to the configured attempt budget.
	ErrDeliveryFailed = New("delivery failed")

	// ErrJobNotEligible indicates a job surfaced as due is no longer
	// eligible to run (disabled or outside its date window). Logged once,
	// never retried, never alerted.
	ErrJobNotEligible = New("job not eligible")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConfigurationError reports whether a delivery failure is a
// configuration failure (non-retryable) rather than a technical one.
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrJobNotSendable)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}
