package types

import (
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of generated artifact.
type ContentType string

// Content types a campaign may contain.
const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

// AllContentTypes lists every content type in presentation order.
var AllContentTypes = []ContentType{ContentText, ContentImage, ContentVideo}

// Verdict is the quality-gate outcome for a content item.
type Verdict string

// Quality verdicts. A content item is user-visible only while its latest
// verdict is approved.
const (
	VerdictPending  Verdict = "pending"
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// QualityVerdict is the structured result of a quality assessment.
type QualityVerdict struct {
	Status     Verdict   `json:"status"`
	Score      float64   `json:"score"` // 0-100
	Reasons    []string  `json:"reasons,omitempty"`
	AssessedAt time.Time `json:"assessed_at,omitempty"`
}

// GenerationParams captures the inputs used to produce one content version,
// kept so a regeneration can be audited against what it replaced.
type GenerationParams struct {
	Model      string `json:"model"`
	BrandVoice string `json:"brand_voice,omitempty"`
	TrendTitle string `json:"trend_title,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
}

// ContentVersion is a superseded version of a content item. Prior versions
// are retained for audit and never deleted.
type ContentVersion struct {
	Payload   string           `json:"payload"`
	Params    GenerationParams `json:"params"`
	Verdict   QualityVerdict   `json:"verdict"`
	CreatedAt time.Time        `json:"created_at"`
}

// ContentItem is one generated artifact belonging to a job. The Payload is
// the ad copy for text items and the generation prompt for media items;
// AssetRef points at the produced media file or URL when one exists.
type ContentItem struct {
	ID       uuid.UUID        `json:"id"`
	JobID    uuid.UUID        `json:"job_id"`
	Type     ContentType      `json:"type"`
	Payload  string           `json:"payload"`
	AssetRef string           `json:"asset_ref,omitempty"`
	Params   GenerationParams `json:"params"`
	Verdict  QualityVerdict   `json:"verdict"`

	// Regenerations counts user-initiated regenerations of this item,
	// bounded by the tier's cap. Automatic quality retries are not counted.
	Regenerations int              `json:"regenerations"`
	History       []ContentVersion `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Supersede archives the item's current version into history and installs
// the new payload with a pending verdict.
func (c *ContentItem) Supersede(payload, assetRef string, params GenerationParams, now time.Time) {
	c.History = append(c.History, ContentVersion{
		Payload:   c.Payload,
		Params:    c.Params,
		Verdict:   c.Verdict,
		CreatedAt: c.UpdatedAt,
	})
	c.Payload = payload
	c.AssetRef = assetRef
	c.Params = params
	c.Verdict = QualityVerdict{Status: VerdictPending}
	c.UpdatedAt = now
}
