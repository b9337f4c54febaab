package types

import "time"

// PackageMetadata describes how a campaign package was produced.
type PackageMetadata struct {
	TierUsed     Tier     `json:"tier_used"`
	ModelsUsed   []string `json:"models_used,omitempty"`
	ServicesUsed []string `json:"services_used,omitempty"`

	ContentPieces int `json:"content_pieces"`

	// Confidence scores carried from each stage, 0-1.
	ProfileConfidence  float64 `json:"profile_confidence"`
	ResearchConfidence float64 `json:"research_confidence"`
	QualityConfidence  float64 `json:"quality_confidence"`
}

// CampaignPackage is the delivered result of a completed job: only approved
// content items, with any content type that exhausted its retries reported
// as omitted rather than failing the job.
type CampaignPackage struct {
	Items        map[ContentType]*ContentItem `json:"items"`
	OmittedTypes []ContentType                `json:"omitted_types,omitempty"`
	Metadata     PackageMetadata              `json:"metadata"`
	AssembledAt  time.Time                    `json:"assembled_at"`
}

// Has reports whether the package delivered an approved item of type t.
func (p *CampaignPackage) Has(t ContentType) bool {
	_, ok := p.Items[t]
	return ok
}
