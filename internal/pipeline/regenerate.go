package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/campaign-studio/internal/store"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// RequestRegeneration validates and enqueues a single-content-type
// regeneration of a completed job. The actual generation runs on a worker;
// this call only transitions the job back to queued with the regeneration
// target recorded.
//
// Concurrent requests for the same job serialize on the job's version:
// the loser's update conflicts and surfaces as InvalidState.
func (e *Engine) RequestRegeneration(ctx context.Context, jobID uuid.UUID, ct types.ContentType, feedback string) (*types.Job, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, err
	}

	if job.Status != types.JobCompleted {
		return nil, &InvalidStateError{
			JobID:  job.ID,
			Status: job.Status,
			Reason: "regeneration requires a completed job",
		}
	}
	item := job.Item(ct)
	if item == nil {
		return nil, &NotFoundError{JobID: jobID, ContentType: ct}
	}

	policy, err := tier.Lookup(job.Tier)
	if err != nil {
		return nil, err
	}
	if item.Regenerations >= policy.RegenerationCap {
		return nil, &RateLimitedError{JobID: jobID, ContentType: ct, Cap: policy.RegenerationCap}
	}

	job.Regen = &types.RegenRequest{ContentType: ct, Feedback: feedback}
	job.Status = types.JobQueued
	job.Stage = types.StageContentGeneration
	// Attempts meters crash reclaims of one execution, not lifetime
	// claims; a fresh execution gets a fresh budget.
	job.Attempts = 0
	job.CompletedAt = nil
	job.Error = nil

	if err := e.store.UpdateJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, &InvalidStateError{
				JobID:  job.ID,
				Status: job.Status,
				Reason: "job was modified concurrently, try again",
			}
		}
		return nil, err
	}
	return job, nil
}

// RequestCancel asks a job to stop at its next stage boundary. Queued jobs
// cancel immediately; running jobs cancel cooperatively. Terminal jobs
// return InvalidState.
func (e *Engine) RequestCancel(ctx context.Context, jobID uuid.UUID) error {
	for i := 0; i < 3; i++ {
		job, err := e.store.GetJob(ctx, jobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{JobID: jobID}
			}
			return err
		}
		if job.Status.IsTerminal() {
			return &InvalidStateError{JobID: jobID, Status: job.Status, Reason: "job already finished"}
		}

		if job.Status == types.JobQueued || job.Status == types.JobNeedsRetry {
			now := time.Now().UTC()
			job.Status = types.JobCancelled
			job.CompletedAt = &now
		}
		job.CancelRequested = true

		err = e.store.UpdateJob(ctx, job)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
	}
	return &InvalidStateError{JobID: jobID, Status: types.JobRunning, Reason: "job is changing too quickly, try again"}
}

// runRegeneration executes a claimed regeneration pass: generate the one
// target type with the user's feedback, re-assess it, and rebuild the
// package. No job state outside the target item changes; until the final
// persist the stored item is untouched, so a crash or failure leaves the
// previous version delivered.
func (e *Engine) runRegeneration(ctx context.Context, job *types.Job, owner string, policy tier.Policy, log *zap.Logger) error {
	req := job.Regen
	log = log.With(zap.String("content_type", string(req.ContentType)))
	log.Info("regeneration starting")

	item := job.Item(req.ContentType)
	if item == nil {
		// The item existed when the request validated; a missing one
		// here means the record was tampered with.
		return e.fail(ctx, job, owner, types.StageContentGeneration,
			&NotFoundError{JobID: job.ID, ContentType: req.ContentType})
	}

	// Always restart the pass from generation: nothing is mutated until
	// the end, so a partially-run regeneration is simply redone.
	job.Stage = types.StageContentGeneration

	regenerated, err := e.generateOne(ctx, job, policy, req.ContentType, req.Feedback)
	if err != nil {
		return e.abandonRegeneration(ctx, job, owner, log, err)
	}

	job.Stage = types.StageQualityAssessment
	if perr := e.persist(ctx, job, owner); perr != nil {
		return perr
	}

	// Assess the candidate on a scratch copy; the stored item keeps its
	// approved version until the whole pass succeeds.
	candidate := *item
	candidate.Payload = regenerated.Payload
	candidate.AssetRef = regenerated.AssetRef
	candidate.Params = regenerated.Params
	verdict, err := e.assessOne(ctx, &candidate, job.Profile, policy)
	if err != nil {
		return e.abandonRegeneration(ctx, job, owner, log, err)
	}

	job.Stage = types.StageFinalize
	if perr := e.persist(ctx, job, owner); perr != nil {
		return perr
	}

	now := time.Now().UTC()
	item.Supersede(regenerated.Payload, regenerated.AssetRef, regenerated.Params, now)
	item.Regenerations++
	item.Verdict = verdict

	job.Package = assemblePackage(job, policy)
	job.Regen = nil
	job.Status = types.JobCompleted
	job.CompletedAt = &now
	job.WorkerID = ""
	if err := e.persist(ctx, job, owner); err != nil {
		return err
	}

	log.Info("regeneration complete",
		zap.String("verdict", string(verdict.Status)),
		zap.Float64("score", verdict.Score))
	return nil
}

// abandonRegeneration restores the job to completed with its previous
// content intact after a failed regeneration pass.
func (e *Engine) abandonRegeneration(ctx context.Context, job *types.Job, owner string, log *zap.Logger, cause error) error {
	log.Warn("regeneration failed, previous content kept", zap.Error(cause))

	now := time.Now().UTC()
	job.Regen = nil
	job.Status = types.JobCompleted
	job.Stage = types.StageFinalize
	job.CompletedAt = &now
	job.WorkerID = ""
	if perr := e.persist(ctx, job, owner); perr != nil {
		return perr
	}
	return cause
}
