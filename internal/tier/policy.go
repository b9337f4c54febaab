// Package tier maps subscription tiers to capability-provider variants,
// quality thresholds, and regeneration caps. The mapping is a lookup table
// keyed by tier and content type so adding a tier or swapping a model is a
// data change, not a code change.
package tier

import (
	"fmt"

	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/types"
)

// Policy is the immutable capability mapping for one subscription tier.
// It is looked up once per job at submission; the job carries the tier
// snapshot from then on.
type Policy struct {
	Tier types.Tier

	// ContentTypes lists the content types this tier may generate, in
	// generation order.
	ContentTypes []types.ContentType

	// Models selects the model capability tier per content type.
	Models map[types.ContentType]llm.ModelTier

	// AnalysisModel and ResearchModel drive the non-generation stages.
	AnalysisModel llm.ModelTier
	ResearchModel llm.ModelTier
	QualityModel  llm.ModelTier

	// QualityThreshold is the minimum 0-100 score for approval.
	QualityThreshold float64

	// RegenerationCap bounds user-initiated regenerations per content type.
	RegenerationCap int
}

// policies is the tier table. Content-type gating mirrors the product
// ladder: basic is text-only, plus adds images, pro adds video, enterprise
// raises caps and the quality bar.
var policies = map[types.Tier]Policy{
	types.TierBasic: {
		Tier:         types.TierBasic,
		ContentTypes: []types.ContentType{types.ContentText},
		Models: map[types.ContentType]llm.ModelTier{
			types.ContentText: llm.TierLite,
		},
		AnalysisModel:    llm.TierLite,
		ResearchModel:    llm.TierLite,
		QualityModel:     llm.TierStandard,
		QualityThreshold: 60,
		RegenerationCap:  1,
	},
	types.TierPlus: {
		Tier:         types.TierPlus,
		ContentTypes: []types.ContentType{types.ContentText, types.ContentImage},
		Models: map[types.ContentType]llm.ModelTier{
			types.ContentText:  llm.TierStandard,
			types.ContentImage: llm.TierStandard,
		},
		AnalysisModel:    llm.TierStandard,
		ResearchModel:    llm.TierStandard,
		QualityModel:     llm.TierStandard,
		QualityThreshold: 65,
		RegenerationCap:  2,
	},
	types.TierPro: {
		Tier:         types.TierPro,
		ContentTypes: []types.ContentType{types.ContentText, types.ContentImage, types.ContentVideo},
		Models: map[types.ContentType]llm.ModelTier{
			types.ContentText:  llm.TierAdvanced,
			types.ContentImage: llm.TierStandard,
			types.ContentVideo: llm.TierAdvanced,
		},
		AnalysisModel:    llm.TierStandard,
		ResearchModel:    llm.TierStandard,
		QualityModel:     llm.TierAdvanced,
		QualityThreshold: 70,
		RegenerationCap:  3,
	},
	types.TierEnterprise: {
		Tier:         types.TierEnterprise,
		ContentTypes: []types.ContentType{types.ContentText, types.ContentImage, types.ContentVideo},
		Models: map[types.ContentType]llm.ModelTier{
			types.ContentText:  llm.TierAdvanced,
			types.ContentImage: llm.TierAdvanced,
			types.ContentVideo: llm.TierAdvanced,
		},
		AnalysisModel:    llm.TierAdvanced,
		ResearchModel:    llm.TierAdvanced,
		QualityModel:     llm.TierAdvanced,
		QualityThreshold: 75,
		RegenerationCap:  5,
	},
}

// Lookup returns the policy for a subscription tier.
func Lookup(t types.Tier) (Policy, error) {
	p, ok := policies[t]
	if !ok {
		return Policy{}, fmt.Errorf("unknown subscription tier: %q", t)
	}
	return p, nil
}

// MustLookup returns the policy for a tier, panicking on unknown tiers.
// Use only where the tier has already been validated at submission.
func MustLookup(t types.Tier) Policy {
	p, err := Lookup(t)
	if err != nil {
		panic(err)
	}
	return p
}

// Allows reports whether the tier may generate the given content type.
func (p Policy) Allows(ct types.ContentType) bool {
	for _, t := range p.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// ModelFor returns the model capability tier for a content type, falling
// back to the text model when the type has no explicit entry.
func (p Policy) ModelFor(ct types.ContentType) llm.ModelTier {
	if m, ok := p.Models[ct]; ok {
		return m
	}
	return p.Models[types.ContentText]
}
