package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/campaign-studio/internal/types"
)

func newJob(t *testing.T, m *Memory, status types.JobStatus) *types.Job {
	t.Helper()
	job := &types.Job{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Input:  types.CampaignInput{BusinessURL: "https://example.com"},
		Tier:   types.TierBasic,
		Stage:  types.StageProfileAnalysis,
		Status: status,
	}
	job.CreatedAt = time.Now().UTC()
	require.NoError(t, m.CreateJob(context.Background(), job))
	return job
}

func TestCreateAndGetJob(t *testing.T) {
	m := NewMemory()
	job := newJob(t, m, types.JobQueued)

	got, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, int64(1), got.Version)

	_, err = m.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJobReturnsCopy(t *testing.T) {
	m := NewMemory()
	job := newJob(t, m, types.JobQueued)

	got, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	got.Status = types.JobFailed

	again, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobQueued, again.Status, "mutating a returned job must not touch stored state")
}

func TestUpdateJobVersionCheck(t *testing.T) {
	m := NewMemory()
	job := newJob(t, m, types.JobQueued)

	a, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	b, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)

	a.Stage = types.StageTrendResearch
	require.NoError(t, m.UpdateJob(context.Background(), a))
	assert.Equal(t, int64(2), a.Version)

	b.Stage = types.StageFinalize
	err = m.UpdateJob(context.Background(), b)
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StageTrendResearch, got.Stage, "losing writer must not be applied")
}

func TestClaimJob(t *testing.T) {
	m := NewMemory()
	first := newJob(t, m, types.JobQueued)
	newJob(t, m, types.JobQueued)

	now := time.Now().UTC()
	claimed, err := m.ClaimJob(context.Background(), "worker-1", now)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	assert.Equal(t, first.ID, claimed.ID, "claims are FIFO")
	assert.Equal(t, types.JobRunning, claimed.Status)
	assert.Equal(t, "worker-1", claimed.WorkerID)
	assert.Equal(t, 1, claimed.Attempts)
	require.NotNil(t, claimed.HeartbeatAt)
}

func TestClaimJobSkipsUnclaimable(t *testing.T) {
	m := NewMemory()
	newJob(t, m, types.JobCompleted)
	newJob(t, m, types.JobRunning)
	retry := newJob(t, m, types.JobNeedsRetry)

	claimed, err := m.ClaimJob(context.Background(), "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, retry.ID, claimed.ID)

	// Nothing left to claim.
	claimed, err = m.ClaimJob(context.Background(), "worker-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestClaimJobIsExclusive(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 5; i++ {
		newJob(t, m, types.JobQueued)
	}

	var (
		mu      sync.Mutex
		claimed = map[uuid.UUID]int{}
		wg      sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := m.ClaimJob(context.Background(), "w", time.Now().UTC())
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, 5)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestHeartbeatAndReclaim(t *testing.T) {
	m := NewMemory()
	newJob(t, m, types.JobQueued)

	start := time.Now().UTC()
	job, err := m.ClaimJob(context.Background(), "worker-1", start)
	require.NoError(t, err)
	require.NotNil(t, job)

	// Heartbeat keeps the job off the reclaim list.
	require.NoError(t, m.Heartbeat(context.Background(), job.ID, "worker-1", start.Add(time.Minute)))
	reclaimed, err := m.ReclaimStale(context.Background(), start.Add(30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, reclaimed)

	// Once the heartbeat is stale, the job goes back to claimable.
	reclaimed, err = m.ReclaimStale(context.Background(), start.Add(5*time.Minute))
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, job.ID, reclaimed[0])

	got, err := m.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobNeedsRetry, got.Status)
	assert.Empty(t, got.WorkerID)

	// Reclaimed job can be claimed again, second attempt.
	again, err := m.ClaimJob(context.Background(), "worker-2", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 2, again.Attempts)
}

func TestHeartbeatWrongWorker(t *testing.T) {
	m := NewMemory()
	newJob(t, m, types.JobQueued)

	job, err := m.ClaimJob(context.Background(), "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, job)

	err = m.Heartbeat(context.Background(), job.ID, "worker-2", time.Now().UTC())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHeartbeatDoesNotBumpVersion(t *testing.T) {
	m := NewMemory()
	newJob(t, m, types.JobQueued)

	job, err := m.ClaimJob(context.Background(), "worker-1", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, job)

	require.NoError(t, m.Heartbeat(context.Background(), job.ID, "worker-1", time.Now().UTC()))

	// The version held since the claim is still current.
	job.CancelRequested = true
	assert.NoError(t, m.UpdateJob(context.Background(), job))
}

func TestListJobsByUser(t *testing.T) {
	m := NewMemory()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		job := &types.Job{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    types.JobQueued,
			Stage:     types.StageProfileAnalysis,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, m.CreateJob(context.Background(), job))
	}
	newJob(t, m, types.JobQueued) // different user

	jobs, err := m.ListJobsByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	for i := 1; i < len(jobs); i++ {
		assert.False(t, jobs[i].CreatedAt.After(jobs[i-1].CreatedAt), "jobs must be newest first")
	}
}

func TestUsers(t *testing.T) {
	m := NewMemory()

	user, err := m.CreateUser(context.Background(), "Dana", "dana@example.com", "hash", "Apex", types.TierPro)
	require.NoError(t, err)
	assert.Equal(t, types.TierPro, user.Tier)

	_, err = m.CreateUser(context.Background(), "Other", "Dana@Example.com", "hash2", "", types.TierBasic)
	assert.ErrorIs(t, err, ErrDuplicate, "email uniqueness is case-insensitive")

	got, hash, err := m.GetUserByEmail(context.Background(), "DANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", hash)

	byID, err := m.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", byID.Name)

	_, _, err = m.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
