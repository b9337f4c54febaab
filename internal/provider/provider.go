// Package provider defines the uniform capability interfaces the pipeline
// engine invokes, plus the error taxonomy that governs retry behavior.
// Concrete providers live in profile, trends, content, and quality; each is
// swappable and tier-aware through the policy passed at call time.
package provider

import (
	"context"

	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

// ProfileAnalyzer extracts a business profile from a URL. Implementations
// must support a degraded fallback producing a lower-confidence profile
// from the URL string alone when the site blocks scraping.
type ProfileAnalyzer interface {
	AnalyzeProfile(ctx context.Context, url string, policy tier.Policy) (*types.BusinessProfile, error)
}

// TrendResearcher discovers viral opportunities for a business, ranked by
// priority band: industry-specific, then general-popular, then meme-based.
type TrendResearcher interface {
	ResearchTrends(ctx context.Context, profile *types.BusinessProfile, policy tier.Policy) (*types.TrendResearch, error)
}

// GenerateRequest carries everything a content generator needs for one item.
type GenerateRequest struct {
	Type    types.ContentType
	Profile *types.BusinessProfile
	Trend   *types.TrendOpportunity
	Input   types.CampaignInput

	// Feedback is rejection reasons or user feedback folded into a
	// regeneration prompt; empty on first generation.
	Feedback string
}

// ContentGenerator produces one content item per call.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req GenerateRequest, policy tier.Policy) (*types.ContentItem, error)
}

// QualityAssessor scores a content item against the tier's approval
// threshold and explains rejections.
type QualityAssessor interface {
	AssessQuality(ctx context.Context, item *types.ContentItem, profile *types.BusinessProfile, policy tier.Policy) (types.QualityVerdict, error)
}

// Set bundles the four capability providers the pipeline engine needs.
type Set struct {
	Profile ProfileAnalyzer
	Trends  TrendResearcher
	Content ContentGenerator
	Quality QualityAssessor
}
