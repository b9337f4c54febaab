package provider

import (
	"errors"
	"fmt"
)

// TransientError marks a provider failure worth retrying: timeouts, rate
// limits, transient upstream errors. The pipeline retries these with
// backoff inside the stage boundary.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error in %s: %v", e.Op, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// Transient wraps err as a retryable provider failure.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Cause: err}
}

// PermanentError marks a failure that retrying cannot fix: malformed input,
// an unsupported tier/model combination, a provider contract violation.
// It fails the stage immediately.
type PermanentError struct {
	Op    string
	Cause error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent provider error in %s: %v", e.Op, e.Cause)
}

func (e *PermanentError) Unwrap() error { return e.Cause }

// Permanent wraps err as a non-retryable provider failure.
func Permanent(op string, err error) error {
	return &PermanentError{Op: op, Cause: err}
}

// FetchBlockedError indicates the business site refused scraping (robots,
// 403, bot challenge). The profile analyzer handles it with a degraded
// URL-only fallback instead of failing the job.
type FetchBlockedError struct {
	URL    string
	Reason string
}

func (e *FetchBlockedError) Error() string {
	return fmt.Sprintf("fetch blocked for %s: %s", e.URL, e.Reason)
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsFetchBlocked reports whether err is (or wraps) a FetchBlockedError.
func IsFetchBlocked(err error) bool {
	var fe *FetchBlockedError
	return errors.As(err, &fe)
}
