package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/types"
)

// ErrClaimLost is returned by a run whose claim was reclaimed after a stale
// heartbeat, and possibly handed to another worker. The run stops writing
// immediately; whoever holds the claim now drives the job.
var ErrClaimLost = errors.New("job claim lost")

// InvalidStateError is returned when an operation is requested on a job not
// in the required state, such as regenerating a job that is still running.
type InvalidStateError struct {
	JobID  uuid.UUID
	Status types.JobStatus
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("job %s in status %s: %s", e.JobID, e.Status, e.Reason)
}

// NotFoundError is returned for an unknown job or a content type that was
// never generated for the job.
type NotFoundError struct {
	JobID       uuid.UUID
	ContentType types.ContentType
}

func (e *NotFoundError) Error() string {
	if e.ContentType != "" {
		return fmt.Sprintf("job %s has no %s content", e.JobID, e.ContentType)
	}
	return fmt.Sprintf("job %s not found", e.JobID)
}

// RateLimitedError is returned when a content type's regeneration counter
// has reached the tier's cap.
type RateLimitedError struct {
	JobID       uuid.UUID
	ContentType types.ContentType
	Cap         int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("job %s: %s regeneration cap of %d reached", e.JobID, e.ContentType, e.Cap)
}

// IsInvalidState reports whether err is (or wraps) an InvalidStateError.
func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitedError.
func IsRateLimited(err error) bool {
	var e *RateLimitedError
	return errors.As(err, &e)
}
