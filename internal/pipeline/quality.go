package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// stageAssess runs the quality gate over every pending content item. A
// rejection triggers exactly one automatic regeneration with the rejection
// reasons fed back as generation feedback; a second rejection stands and
// the item surfaces to the user as rejected. Automatic retries do not count
// against the user's regeneration cap.
func (e *Engine) stageAssess(ctx context.Context, job *types.Job, policy tier.Policy) error {
	for _, ct := range policy.ContentTypes {
		item := job.Item(ct)
		if item == nil || item.Verdict.Status != types.VerdictPending {
			continue
		}

		verdict, err := e.assessOne(ctx, item, job.Profile, policy)
		if err != nil {
			return err
		}
		item.Verdict = verdict
		if verdict.Status != types.VerdictRejected {
			continue
		}

		e.log.Info("content rejected, attempting automatic regeneration",
			zap.String("job_id", job.ID.String()),
			zap.String("content_type", string(ct)),
			zap.Float64("score", verdict.Score))

		feedback := strings.Join(verdict.Reasons, "; ")
		regenerated, err := e.generateOne(ctx, job, policy, ct, feedback)
		if err != nil {
			// The first rejection stands; the user still has an item
			// with actionable reasons.
			e.log.Warn("automatic regeneration failed, keeping rejection",
				zap.String("job_id", job.ID.String()),
				zap.String("content_type", string(ct)),
				zap.Error(err))
			continue
		}

		item.Supersede(regenerated.Payload, regenerated.AssetRef, regenerated.Params, time.Now().UTC())
		second, err := e.assessOne(ctx, item, job.Profile, policy)
		if err != nil {
			return err
		}
		item.Verdict = second
	}
	return nil
}

// assessOne scores one item with per-call timeout and retry.
func (e *Engine) assessOne(ctx context.Context, item *types.ContentItem, profile *types.BusinessProfile, policy tier.Policy) (types.QualityVerdict, error) {
	var verdict types.QualityVerdict
	err := e.withRetry(ctx, "assess."+string(item.Type), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.GenTimeout)
		defer cancel()

		v, err := e.providers.Quality.AssessQuality(callCtx, item, profile, policy)
		if err != nil {
			return err
		}
		verdict = v
		return nil
	})
	return verdict, err
}
