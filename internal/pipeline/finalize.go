package pipeline

import (
	"time"

	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// packageServices names the stages that contributed to a delivered
// package, recorded as metadata.
var packageServices = []string{
	"website_analysis", "trend_research", "content_generation", "quality_assessment",
}

// stageFinalize assembles the delivered package from approved items only.
// Content types that exhausted their retries are reported as omitted, not
// treated as whole-job failure.
func (e *Engine) stageFinalize(job *types.Job, policy tier.Policy) error {
	job.Package = assemblePackage(job, policy)
	return nil
}

func assemblePackage(job *types.Job, policy tier.Policy) *types.CampaignPackage {
	items := make(map[types.ContentType]*types.ContentItem)
	var omitted []types.ContentType

	modelsSeen := make(map[string]bool)
	var models []string
	var qualitySum float64

	for _, ct := range policy.ContentTypes {
		item := job.Item(ct)
		if item == nil || item.Verdict.Status != types.VerdictApproved {
			omitted = append(omitted, ct)
			continue
		}
		items[ct] = item
		qualitySum += item.Verdict.Score / 100
		if item.Params.Model != "" && !modelsSeen[item.Params.Model] {
			modelsSeen[item.Params.Model] = true
			models = append(models, item.Params.Model)
		}
	}

	metadata := types.PackageMetadata{
		TierUsed:      job.Tier,
		ModelsUsed:    models,
		ServicesUsed:  packageServices,
		ContentPieces: len(items),
	}
	if job.Profile != nil {
		metadata.ProfileConfidence = job.Profile.Confidence
	}
	if job.Research != nil {
		metadata.ResearchConfidence = job.Research.Confidence
	}
	if len(items) > 0 {
		metadata.QualityConfidence = qualitySum / float64(len(items))
	}

	return &types.CampaignPackage{
		Items:        items,
		OmittedTypes: omitted,
		Metadata:     metadata,
		AssembledAt:  time.Now().UTC(),
	}
}
