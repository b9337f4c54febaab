package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/types"
)

// Memory is an in-process Store. It backs tests and single-process
// deployments that run without PostgreSQL.
type Memory struct {
	mu    sync.Mutex
	jobs  map[uuid.UUID]*types.Job
	users map[uuid.UUID]*memUser
	// order remembers insertion sequence so claims are FIFO even when
	// jobs share a CreatedAt timestamp.
	order []uuid.UUID
}

type memUser struct {
	user         types.User
	passwordHash string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:  make(map[uuid.UUID]*types.Job),
		users: make(map[uuid.UUID]*memUser),
	}
}

// cloneJob deep-copies a job through JSON so callers can never mutate
// stored state without going through UpdateJob.
func cloneJob(job *types.Job) *types.Job {
	data, err := json.Marshal(job)
	if err != nil {
		panic(fmt.Sprintf("job not serializable: %v", err))
	}
	var out types.Job
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("job not deserializable: %v", err))
	}
	return &out
}

// CreateJob inserts a new job with version 1.
func (m *Memory) CreateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s: %w", job.ID, ErrDuplicate)
	}
	job.Version = 1
	m.jobs[job.ID] = cloneJob(job)
	m.order = append(m.order, job.ID)
	return nil
}

// GetJob returns a copy of the job, or ErrNotFound.
func (m *Memory) GetJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return cloneJob(job), nil
}

// UpdateJob writes the job back under an optimistic version check.
func (m *Memory) UpdateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	if stored.Version != job.Version {
		return fmt.Errorf("job %s: have version %d, stored is %d: %w",
			job.ID, job.Version, stored.Version, ErrVersionConflict)
	}

	job.Version++
	job.UpdatedAt = time.Now().UTC()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

// ClaimJob claims the oldest queued or needs_retry job for workerID.
func (m *Memory) ClaimJob(_ context.Context, workerID string, now time.Time) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		job := m.jobs[id]
		if job == nil {
			continue
		}
		if job.Status != types.JobQueued && job.Status != types.JobNeedsRetry {
			continue
		}

		job.Status = types.JobRunning
		job.WorkerID = workerID
		job.Attempts++
		hb := now
		job.HeartbeatAt = &hb
		job.UpdatedAt = now
		job.Version++
		return cloneJob(job), nil
	}
	return nil, nil
}

// Heartbeat refreshes the liveness stamp without bumping the version.
func (m *Memory) Heartbeat(_ context.Context, id uuid.UUID, workerID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != types.JobRunning || job.WorkerID != workerID {
		return fmt.Errorf("running job %s for worker %s: %w", id, workerID, ErrNotFound)
	}
	hb := now
	job.HeartbeatAt = &hb
	return nil
}

// ReclaimStale re-queues running jobs whose heartbeat predates cutoff.
func (m *Memory) ReclaimStale(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reclaimed []uuid.UUID
	for _, id := range m.order {
		job := m.jobs[id]
		if job == nil || job.Status != types.JobRunning {
			continue
		}
		if job.HeartbeatAt != nil && !job.HeartbeatAt.Before(cutoff) {
			continue
		}

		job.Status = types.JobNeedsRetry
		job.WorkerID = ""
		job.HeartbeatAt = nil
		job.UpdatedAt = time.Now().UTC()
		job.Version++
		reclaimed = append(reclaimed, id)
	}
	return reclaimed, nil
}

// ListJobsByUser returns a user's jobs, newest first.
func (m *Memory) ListJobsByUser(_ context.Context, userID uuid.UUID) ([]*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.Job
	for _, job := range m.jobs {
		if job.UserID == userID {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CreateUser inserts a new account.
func (m *Memory) CreateUser(_ context.Context, name, email, passwordHash, company string, tier types.Tier) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.user.Email) == email {
			return nil, fmt.Errorf("user %s: %w", email, ErrDuplicate)
		}
	}

	now := time.Now().UTC()
	user := types.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Company:   company,
		Tier:      tier,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.users[user.ID] = &memUser{user: user, passwordHash: passwordHash}
	out := user
	return &out, nil
}

// GetUserByEmail returns an account and its password hash.
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*types.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.user.Email) == email {
			out := u.user
			return &out, u.passwordHash, nil
		}
	}
	return nil, "", fmt.Errorf("user %s: %w", email, ErrNotFound)
}

// GetUser returns an account by ID.
func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	out := u.user
	return &out, nil
}
