// Package store defines persistent storage for campaign jobs and users.
//
// All job mutations go through an optimistic-concurrency protocol: UpdateJob
// only succeeds when the caller holds the job's current version, and every
// successful write increments it. Claiming is the one atomic
// check-and-transition the dispatcher relies on to guarantee a job is
// executed by at most one worker at a time.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/types"
)

var (
	// ErrNotFound is returned when a job or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an update carries a stale job
	// version, meaning another writer got there first.
	ErrVersionConflict = errors.New("job version conflict")

	// ErrDuplicate is returned when a unique constraint would be violated,
	// such as registering an already-taken username.
	ErrDuplicate = errors.New("already exists")
)

// Store is the persistence boundary for campaign jobs and accounts. It is
// implemented by the in-memory store (tests, single-process mode) and by the
// PostgreSQL store.
type Store interface {
	JobStore
	UserStore
}

// JobStore persists campaign jobs.
type JobStore interface {
	// CreateJob inserts a new job. The job's Version is set to 1.
	CreateJob(ctx context.Context, job *types.Job) error

	// GetJob returns a job by ID, or ErrNotFound.
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)

	// UpdateJob writes the job back if job.Version still matches the
	// stored version, then increments it. Returns ErrVersionConflict when
	// the version is stale and ErrNotFound when the job does not exist.
	// On success the job's Version field reflects the new version.
	UpdateJob(ctx context.Context, job *types.Job) error

	// ClaimJob atomically claims the oldest claimable job (status queued
	// or needs_retry) for the given worker: sets status running, records
	// the worker ID, increments Attempts, and stamps a heartbeat. Returns
	// (nil, nil) when no job is claimable.
	ClaimJob(ctx context.Context, workerID string, now time.Time) (*types.Job, error)

	// Heartbeat refreshes the liveness stamp on a running job owned by
	// workerID. It does not bump the job version, so a concurrent cancel
	// request is never clobbered. Returns ErrNotFound when the job is not
	// running under that worker.
	Heartbeat(ctx context.Context, id uuid.UUID, workerID string, now time.Time) error

	// ReclaimStale re-queues running jobs whose heartbeat is older than
	// cutoff, marking them needs_retry and clearing the worker ID. It
	// returns the IDs of the jobs reclaimed.
	ReclaimStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	// ListJobsByUser returns a user's jobs, newest first.
	ListJobsByUser(ctx context.Context, userID uuid.UUID) ([]*types.Job, error)
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new account. Returns ErrDuplicate when the
	// email is taken.
	CreateUser(ctx context.Context, name, email, passwordHash, company string, tier types.Tier) (*types.User, error)

	// GetUserByEmail returns an account and its password hash, or
	// ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*types.User, string, error)

	// GetUser returns an account by ID, or ErrNotFound.
	GetUser(ctx context.Context, id uuid.UUID) (*types.User, error)
}
