// Package dispatch owns job intake and execution: Submit registers jobs in
// the store, and a bounded worker pool claims and runs them. Claim
// atomicity lives in the store; the dispatcher adds heartbeats while a job
// runs and a periodic sweep that re-queues jobs whose worker died.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/campaign-studio/internal/pipeline"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// Config bounds the pool and its liveness timers.
type Config struct {
	// Workers is the number of execution slots; at most this many jobs
	// run concurrently.
	Workers int

	// PollInterval is how often an idle worker checks for claimable work.
	PollInterval time.Duration

	// HeartbeatInterval is how often a busy worker refreshes its claim.
	HeartbeatInterval time.Duration

	// ReclaimInterval and StaleAfter drive the crash sweep: a running job
	// whose heartbeat is older than StaleAfter is re-queued.
	ReclaimInterval time.Duration
	StaleAfter      time.Duration

	// MaxAttempts caps claims per queued execution, reclaims included. A
	// job claimed beyond the cap is failed instead of run again.
	MaxAttempts int
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		Workers:           4,
		PollInterval:      time.Second,
		HeartbeatInterval: 15 * time.Second,
		ReclaimInterval:   30 * time.Second,
		StaleAfter:        2 * time.Minute,
		MaxAttempts:       2,
	}
}

// Dispatcher accepts submissions and runs the worker pool.
type Dispatcher struct {
	store  store.JobStore
	engine *pipeline.Engine
	cfg    Config
	log    *zap.Logger
}

// New creates a dispatcher. The engine is what claimed jobs are handed to.
func New(st store.JobStore, engine *pipeline.Engine, cfg Config, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{store: st, engine: engine, cfg: cfg, log: log}
}

// Submit registers a new job in queued state and returns it immediately;
// no pipeline work happens on the caller's goroutine. The tier is
// validated and snapshotted here — later subscription changes never affect
// an in-flight job.
func (d *Dispatcher) Submit(ctx context.Context, userID uuid.UUID, input types.CampaignInput, jobTier types.Tier) (*types.Job, error) {
	if _, err := tier.Lookup(jobTier); err != nil {
		return nil, err
	}

	job := &types.Job{
		ID:        uuid.New(),
		UserID:    userID,
		Input:     input,
		Tier:      jobTier,
		Stage:     types.StageProfileAnalysis,
		Status:    types.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}

	d.log.Info("job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("tier", string(jobTier)))
	return job, nil
}

// Run starts the worker pool and the reclaim sweep, blocking until ctx is
// cancelled. Shutdown is graceful: workers finish nothing — in-flight jobs
// stop at their next provider call and are re-queued by a later sweep.
func (d *Dispatcher) Run(ctx context.Context) error {
	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		workerID := fmt.Sprintf("%s-%d", host, i)
		g.Go(func() error {
			d.workerLoop(ctx, workerID)
			return nil
		})
	}
	g.Go(func() error {
		d.reclaimLoop(ctx)
		return nil
	})

	d.log.Info("dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Duration("stale_after", d.cfg.StaleAfter))
	return g.Wait()
}

// workerLoop polls for claimable jobs and executes them one at a time.
func (d *Dispatcher) workerLoop(ctx context.Context, workerID string) {
	log := d.log.With(zap.String("worker_id", workerID))
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		job, err := d.store.ClaimJob(ctx, workerID, time.Now().UTC())
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("claim failed", zap.Error(err))
		}
		if job != nil {
			d.execute(ctx, job, workerID, log)
			// Drain the queue before going back to sleep.
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// execute runs one claimed job under a heartbeat.
func (d *Dispatcher) execute(ctx context.Context, job *types.Job, workerID string, log *zap.Logger) {
	log = log.With(zap.String("job_id", job.ID.String()), zap.Int("attempt", job.Attempts))

	if job.Attempts > d.cfg.MaxAttempts {
		log.Warn("job exceeded execution attempts, failing")
		d.failExhausted(ctx, job)
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go d.heartbeatLoop(hbCtx, job.ID, workerID, log)

	log.Info("job execution starting", zap.String("stage", string(job.Stage)))
	if err := d.engine.Run(ctx, job); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Info("execution interrupted by shutdown, job left for reclaim")
		case errors.Is(err, pipeline.ErrClaimLost):
			log.Info("claim reclaimed mid-run, abandoning job to its new owner")
		default:
			log.Warn("job execution ended in failure", zap.Error(err))
		}
	}
}

// heartbeatLoop refreshes the claim until the job finishes or the claim is
// lost. A lost claim (reclaimed or completed) ends the loop quietly.
func (d *Dispatcher) heartbeatLoop(ctx context.Context, jobID uuid.UUID, workerID string, log *zap.Logger) {
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := d.store.Heartbeat(ctx, jobID, workerID, time.Now().UTC())
		if err == nil {
			continue
		}
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, context.Canceled) {
			return
		}
		log.Warn("heartbeat failed", zap.Error(err))
	}
}

// reclaimLoop periodically re-queues running jobs whose heartbeat went
// stale, so a crashed worker's job is retried elsewhere.
func (d *Dispatcher) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cutoff := time.Now().UTC().Add(-d.cfg.StaleAfter)
		ids, err := d.store.ReclaimStale(ctx, cutoff)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				d.log.Warn("reclaim sweep failed", zap.Error(err))
			}
			continue
		}
		for _, id := range ids {
			d.log.Warn("reclaimed stale job", zap.String("job_id", id.String()))
		}
	}
}

// failExhausted terminally fails a job that keeps getting interrupted.
func (d *Dispatcher) failExhausted(ctx context.Context, job *types.Job) {
	now := time.Now().UTC()
	job.Status = types.JobFailed
	job.CompletedAt = &now
	job.WorkerID = ""
	job.Error = &types.JobError{
		Stage:   job.Stage,
		Message: "processing was interrupted repeatedly; please submit the campaign again",
	}
	if err := d.store.UpdateJob(ctx, job); err != nil {
		d.log.Warn("failed to mark exhausted job",
			zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
