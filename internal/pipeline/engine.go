// Package pipeline implements the campaign state machine: a fixed stage
// sequence advanced one job at a time, persisting after every stage so a
// crash resumes at the next stage instead of re-running completed work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/trends"
	"github.com/jonathan/campaign-studio/internal/types"
)

// Config bounds the engine's retry and timeout behavior.
type Config struct {
	// StageRetries is how many times a transient provider failure is
	// retried within a stage before the failure surfaces.
	StageRetries int

	// RetryBackoff is the first retry delay; it doubles per retry.
	RetryBackoff time.Duration

	// GenTimeout bounds one content-generation or assessment call.
	// VideoGenTimeout applies to video, which runs much longer.
	GenTimeout      time.Duration
	VideoGenTimeout time.Duration
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		StageRetries:    3,
		RetryBackoff:    2 * time.Second,
		GenTimeout:      120 * time.Second,
		VideoGenTimeout: 300 * time.Second,
	}
}

// Engine advances jobs through the stage sequence. It is safe for
// concurrent use; each Run call owns its job exclusively (the dispatcher's
// claim guarantees that) and all shared state lives in the store.
type Engine struct {
	store     store.JobStore
	providers provider.Set
	cfg       Config
	log       *zap.Logger
}

// New creates a pipeline engine.
func New(st store.JobStore, providers provider.Set, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: st, providers: providers, cfg: cfg, log: log}
}

// Run executes a claimed job to a terminal state. The job must be in
// status running; Run resumes from the job's persisted stage pointer.
// Context cancellation (worker shutdown) returns early without failing the
// job — the reclaim sweep will re-queue it.
func (e *Engine) Run(ctx context.Context, job *types.Job) error {
	// The claim this run holds; every write re-checks it so a run whose
	// heartbeat went stale can never overwrite a new claimant's state.
	owner := job.WorkerID

	log := e.log.With(
		zap.String("job_id", job.ID.String()),
		zap.String("tier", string(job.Tier)),
		zap.Int("attempt", job.Attempts),
	)

	policy, err := tier.Lookup(job.Tier)
	if err != nil {
		return e.fail(ctx, job, owner, job.Stage, provider.Permanent("tier.lookup", err))
	}

	if job.Regen != nil {
		return e.runRegeneration(ctx, job, owner, policy, log)
	}

	for {
		// Stage boundary: honor a pending cancel before doing more work.
		cancelled, err := e.syncCancel(ctx, job, owner)
		if err != nil {
			return err
		}
		if cancelled {
			log.Info("job cancelled at stage boundary", zap.String("stage", string(job.Stage)))
			return nil
		}

		stage := job.Stage
		log.Info("stage starting", zap.String("stage", string(stage)))
		start := time.Now()

		if err := e.runStage(ctx, job, policy); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("worker shutting down, leaving job for reclaim",
					zap.String("stage", string(stage)))
				return err
			}
			log.Warn("stage failed", zap.String("stage", string(stage)), zap.Error(err))
			return e.fail(ctx, job, owner, stage, err)
		}

		// A cancel that arrived mid-stage discards the stage's results.
		cancelled, err = e.syncCancel(ctx, job, owner)
		if err != nil {
			return err
		}
		if cancelled {
			log.Info("job cancelled, stage results discarded", zap.String("stage", string(stage)))
			return nil
		}

		done := stage == types.StageFinalize
		if done {
			now := time.Now().UTC()
			job.Status = types.JobCompleted
			job.CompletedAt = &now
			job.WorkerID = ""
		} else {
			job.Stage = types.NextStage(stage)
		}
		if err := e.persist(ctx, job, owner); err != nil {
			return err
		}

		log.Info("stage complete",
			zap.String("stage", string(stage)),
			zap.Duration("elapsed", time.Since(start)))
		if done {
			log.Info("job completed")
			return nil
		}
	}
}

// runStage dispatches to the handler for the job's current stage.
func (e *Engine) runStage(ctx context.Context, job *types.Job, policy tier.Policy) error {
	switch job.Stage {
	case types.StageProfileAnalysis:
		return e.stageProfile(ctx, job, policy)
	case types.StageTrendResearch:
		return e.stageTrends(ctx, job, policy)
	case types.StageContentGeneration:
		return e.stageGenerate(ctx, job, policy)
	case types.StageQualityAssessment:
		return e.stageAssess(ctx, job, policy)
	case types.StageFinalize:
		return e.stageFinalize(job, policy)
	default:
		return provider.Permanent("pipeline", fmt.Errorf("unknown stage %q", job.Stage))
	}
}

// stageProfile analyzes the business URL into a profile artifact.
func (e *Engine) stageProfile(ctx context.Context, job *types.Job, policy tier.Policy) error {
	var profile *types.BusinessProfile
	err := e.withRetry(ctx, "profile.analyze", func(ctx context.Context) error {
		p, err := e.providers.Profile.AnalyzeProfile(ctx, job.Input.BusinessURL, policy)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return err
	}
	job.Profile = profile
	return nil
}

// stageTrends researches viral opportunities. Exhausted transient retries
// degrade to the catalog-only fallback instead of failing the job; the
// lower confidence is carried on the artifact.
func (e *Engine) stageTrends(ctx context.Context, job *types.Job, policy tier.Policy) error {
	var research *types.TrendResearch
	err := e.withRetry(ctx, "trends.research", func(ctx context.Context) error {
		r, err := e.providers.Trends.ResearchTrends(ctx, job.Profile, policy)
		if err != nil {
			return err
		}
		research = r
		return nil
	})
	if err != nil {
		if !provider.IsTransient(err) {
			return err
		}
		e.log.Warn("live trend research unavailable, using catalog fallback",
			zap.String("job_id", job.ID.String()), zap.Error(err))
		research = trends.Fallback(job.Profile)
	}
	job.Research = research
	return nil
}

// syncCancel refreshes the cancel flag and version from the store, and
// verifies this run still holds the claim. When a cancel is pending it
// finalizes the job from the persisted state, so any unpersisted stage
// results the working copy holds are discarded.
func (e *Engine) syncCancel(ctx context.Context, job *types.Job, owner string) (bool, error) {
	fresh, err := e.store.GetJob(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if fresh.Status.IsTerminal() {
		// Finalized out from under this run (concurrent cancel).
		*job = *fresh
		return true, nil
	}
	if fresh.Status != types.JobRunning || fresh.WorkerID != owner {
		// Reclaimed after a stale heartbeat, possibly already claimed
		// by another worker. This run no longer owns the job.
		return false, ErrClaimLost
	}
	job.Version = fresh.Version
	job.CancelRequested = fresh.CancelRequested

	if !fresh.CancelRequested {
		return false, nil
	}

	now := time.Now().UTC()
	fresh.Status = types.JobCancelled
	fresh.CompletedAt = &now
	fresh.WorkerID = ""
	if err := e.store.UpdateJob(ctx, fresh); err != nil {
		return true, err
	}
	*job = *fresh
	return true, nil
}

// persist writes the working copy back. A version conflict normally means a
// concurrent cancel request bumped the version; but a stale-heartbeat
// reclaim bumps it too, so before retrying the run must confirm it still
// owns the claim. A lost claim aborts the write with ErrClaimLost.
func (e *Engine) persist(ctx context.Context, job *types.Job, owner string) error {
	for i := 0; i < 3; i++ {
		err := e.store.UpdateJob(ctx, job)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		fresh, gerr := e.store.GetJob(ctx, job.ID)
		if gerr != nil {
			return gerr
		}
		if fresh.Status != types.JobRunning || fresh.WorkerID != owner {
			return ErrClaimLost
		}
		job.Version = fresh.Version
		job.CancelRequested = fresh.CancelRequested
	}
	return fmt.Errorf("job %s: persistent version conflict", job.ID)
}

// fail records the failing stage and a user-presentable cause, then
// persists the terminal state. The original error is returned for logging.
func (e *Engine) fail(ctx context.Context, job *types.Job, owner string, stage types.Stage, cause error) error {
	now := time.Now().UTC()
	job.Status = types.JobFailed
	job.CompletedAt = &now
	job.WorkerID = ""
	job.Error = &types.JobError{Stage: stage, Message: failureMessage(stage, cause)}
	if perr := e.persist(ctx, job, owner); perr != nil {
		return perr
	}
	return cause
}

// withRetry runs fn, retrying transient provider failures with exponential
// backoff up to the configured bound. Permanent errors return immediately.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := e.cfg.RetryBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !provider.IsTransient(err) || attempt >= e.cfg.StageRetries {
			return err
		}
		e.log.Warn("transient provider failure, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// stageLabels map stages to the wording user-visible errors use.
var stageLabels = map[types.Stage]string{
	types.StageProfileAnalysis:   "website analysis",
	types.StageTrendResearch:     "trend research",
	types.StageContentGeneration: "content generation",
	types.StageQualityAssessment: "quality review",
	types.StageFinalize:          "package assembly",
}

// failureMessage builds the human-readable cause recorded on a failed job.
// Raw provider error text never reaches the user.
func failureMessage(stage types.Stage, err error) string {
	label, ok := stageLabels[stage]
	if !ok {
		label = string(stage)
	}
	switch {
	case provider.IsTransient(err):
		return fmt.Sprintf("the %s service stayed unavailable after repeated attempts; please try again later", label)
	case provider.IsPermanent(err):
		return fmt.Sprintf("the %s step could not process this campaign's input", label)
	default:
		return fmt.Sprintf("the %s step failed unexpectedly", label)
	}
}
