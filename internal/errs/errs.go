// Package errs defines the error taxonomy for reconciliation: validation
// faults, missing rows, data-integrity faults, and retryable store faults.
// Handlers map these onto HTTP status codes.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrValidation indicates the request carried neither an email nor a
	// phone number after normalization.
	ErrValidation = errors.New("at least one of email or phoneNumber is required")

	// ErrNotFound indicates a requested contact does not exist or is
	// soft-deleted.
	ErrNotFound = errors.New("contact not found")
)

// DataIntegrityError reports corrupted linkage: a resolved primary id that
// cannot be loaded. It is never retried automatically.
type DataIntegrityError struct {
	PrimaryID int64
	Key       string
	Stage     string
}

// Error implements the error interface.
func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity fault at stage %q: primary contact %d unreachable (key %q)", e.Stage, e.PrimaryID, e.Key)
}

// IsDataIntegrity reports whether err is a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var e *DataIntegrityError
	return errors.As(err, &e)
}

// RetryableError wraps a store transient or serialization fault. The caller
// may safely re-issue the identical request; reconciliation is idempotent
// for identical inputs.
type RetryableError struct {
	Key   string
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable store fault at stage %q (key %q): %v", e.Stage, e.Key, e.Err)
}

// Unwrap returns the underlying store error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a RetryableError.
func IsRetryable(err error) bool {
	var e *RetryableError
	return errors.As(err, &e)
}
