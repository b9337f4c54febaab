package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/types"
)

const jobColumns = `id, user_id, input, tier, stage, status, attempts, version,
	cancel_requested, worker_id, profile, research, items, package, error,
	created_at, updated_at, completed_at, heartbeat_at`

type jobRow struct {
	input    []byte
	profile  []byte
	research []byte
	items    []byte
	pkg      []byte
	jobErr   []byte
}

func scanJob(row pgx.Row) (*types.Job, error) {
	var job types.Job
	var r jobRow
	err := row.Scan(
		&job.ID, &job.UserID, &r.input, &job.Tier, &job.Stage, &job.Status,
		&job.Attempts, &job.Version, &job.CancelRequested, &job.WorkerID,
		&r.profile, &r.research, &r.items, &r.pkg, &r.jobErr,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt, &job.HeartbeatAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(r.input, &job.Input); err != nil {
		return nil, fmt.Errorf("failed to decode job input: %w", err)
	}
	for _, f := range []struct {
		data []byte
		dst  any
	}{
		{r.profile, &job.Profile},
		{r.research, &job.Research},
		{r.items, &job.Items},
		{r.pkg, &job.Package},
		{r.jobErr, &job.Error},
	} {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode job artifact: %w", err)
		}
	}
	return &job, nil
}

func jobFields(job *types.Job) (input, profile, research, items, pkg, jobErr []byte, err error) {
	if input, err = json.Marshal(job.Input); err != nil {
		return
	}
	if job.Profile != nil {
		if profile, err = json.Marshal(job.Profile); err != nil {
			return
		}
	}
	if job.Research != nil {
		if research, err = json.Marshal(job.Research); err != nil {
			return
		}
	}
	if job.Items != nil {
		if items, err = json.Marshal(job.Items); err != nil {
			return
		}
	}
	if job.Package != nil {
		if pkg, err = json.Marshal(job.Package); err != nil {
			return
		}
	}
	if job.Error != nil {
		jobErr, err = json.Marshal(job.Error)
	}
	return
}

// CreateJob inserts a new job with version 1.
func (db *DB) CreateJob(ctx context.Context, job *types.Job) error {
	input, profile, research, items, pkg, jobErr, err := jobFields(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO campaign_jobs
		   (id, user_id, input, tier, stage, status, attempts, version,
		    cancel_requested, worker_id, profile, research, items, package, error,
		    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		job.ID, job.UserID, input, job.Tier, job.Stage, job.Status, job.Attempts,
		job.CancelRequested, job.WorkerID, profile, research, items, pkg, jobErr,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	// Only a successful insert owns version 1; a failed one must not
	// leave the caller's copy claiming a version it never got.
	job.Version = 1
	return nil
}

// GetJob retrieves a job by ID.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM campaign_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// UpdateJob writes the job back under an optimistic version check.
func (db *DB) UpdateJob(ctx context.Context, job *types.Job) error {
	input, profile, research, items, pkg, jobErr, err := jobFields(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	var newVersion int64
	err = db.pool.QueryRow(ctx,
		`UPDATE campaign_jobs
		 SET input = $3, tier = $4, stage = $5, status = $6, attempts = $7,
		     cancel_requested = $8, worker_id = $9, profile = $10, research = $11,
		     items = $12, package = $13, error = $14, completed_at = $15,
		     heartbeat_at = $16, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		job.ID, job.Version, input, job.Tier, job.Stage, job.Status, job.Attempts,
		job.CancelRequested, job.WorkerID, profile, research, items, pkg, jobErr,
		job.CompletedAt, job.HeartbeatAt,
	).Scan(&newVersion)
	if err == nil {
		job.Version = newVersion
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update job: %w", err)
	}

	// No row matched: distinguish a missing job from a stale version.
	var exists bool
	if probeErr := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaign_jobs WHERE id = $1)`, job.ID,
	).Scan(&exists); probeErr != nil {
		return fmt.Errorf("failed to update job: %w", probeErr)
	}
	if !exists {
		return fmt.Errorf("job %s: %w", job.ID, store.ErrNotFound)
	}
	return fmt.Errorf("job %s at version %d: %w", job.ID, job.Version, store.ErrVersionConflict)
}

// ClaimJob atomically claims the oldest claimable job. SKIP LOCKED keeps
// concurrent workers from blocking on (or double-claiming) the same row.
func (db *DB) ClaimJob(ctx context.Context, workerID string, now time.Time) (*types.Job, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`UPDATE campaign_jobs
		 SET status = 'running', worker_id = $1, attempts = attempts + 1,
		     heartbeat_at = $2, updated_at = $2, version = version + 1
		 WHERE id = (
		     SELECT id FROM campaign_jobs
		     WHERE status IN ('queued', 'needs_retry')
		     ORDER BY created_at
		     LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+jobColumns,
		workerID, now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

// Heartbeat refreshes the liveness stamp on a running job. The version is
// deliberately left alone so the worker's held version stays valid.
func (db *DB) Heartbeat(ctx context.Context, id uuid.UUID, workerID string, now time.Time) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE campaign_jobs SET heartbeat_at = $3
		 WHERE id = $1 AND worker_id = $2 AND status = 'running'`,
		id, workerID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to heartbeat job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("running job %s for worker %s: %w", id, workerID, store.ErrNotFound)
	}
	return nil
}

// ReclaimStale re-queues running jobs whose heartbeat predates cutoff.
func (db *DB) ReclaimStale(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := db.pool.Query(ctx,
		`UPDATE campaign_jobs
		 SET status = 'needs_retry', worker_id = '', heartbeat_at = NULL,
		     updated_at = NOW(), version = version + 1
		 WHERE status = 'running' AND (heartbeat_at IS NULL OR heartbeat_at < $1)
		 RETURNING id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	defer rows.Close()

	var reclaimed []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reclaimed job: %w", err)
		}
		reclaimed = append(reclaimed, id)
	}
	return reclaimed, rows.Err()
}

// ListJobsByUser retrieves a user's jobs, newest first.
func (db *DB) ListJobsByUser(ctx context.Context, userID uuid.UUID) ([]*types.Job, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM campaign_jobs
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
