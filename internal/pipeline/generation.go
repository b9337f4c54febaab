package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/trends"
	"github.com/jonathan/campaign-studio/internal/types"
)

// stageGenerate fans out across the tier's content types. The sub-tasks run
// concurrently without a shared cancel: one type's failure or slowness must
// never abort the others, so the group carries no context and each sub-task
// gets its own timeout inside generateOne. A type that exhausts its retries
// is skipped (finalize will report it omitted); the stage only fails when
// nothing at all was generated.
func (e *Engine) stageGenerate(ctx context.Context, job *types.Job, policy tier.Policy) error {
	var (
		mu      sync.Mutex
		g       errgroup.Group
		lastErr error
	)

	for _, ct := range policy.ContentTypes {
		if job.Item(ct) != nil {
			// Already generated: regeneration re-entry or stage resume.
			continue
		}
		ct := ct
		g.Go(func() error {
			item, err := e.generateOne(ctx, job, policy, ct, "")
			if err != nil {
				e.log.Warn("content generation failed for type",
					zap.String("job_id", job.ID.String()),
					zap.String("content_type", string(ct)),
					zap.Error(err))
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			item.JobID = job.ID
			mu.Lock()
			job.SetItem(item)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(job.Items) == 0 {
		if lastErr != nil {
			return fmt.Errorf("no content could be generated: %w", lastErr)
		}
		return provider.Permanent("content.generate", fmt.Errorf("tier %s enables no content types", policy.Tier))
	}
	return nil
}

// generateOne produces one content item with per-call timeout and retry.
// feedback carries rejection reasons or user feedback on regeneration.
func (e *Engine) generateOne(ctx context.Context, job *types.Job, policy tier.Policy, ct types.ContentType, feedback string) (*types.ContentItem, error) {
	timeout := e.cfg.GenTimeout
	if ct == types.ContentVideo {
		timeout = e.cfg.VideoGenTimeout
	}

	req := provider.GenerateRequest{
		Type:     ct,
		Profile:  job.Profile,
		Trend:    trends.Best(job.Research, ct),
		Input:    job.Input,
		Feedback: feedback,
	}

	var item *types.ContentItem
	err := e.withRetry(ctx, "generate."+string(ct), func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		generated, err := e.providers.Content.GenerateContent(callCtx, req, policy)
		if err != nil {
			return err
		}
		item = generated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
