package types

import "time"

// TrendType classifies a viral opportunity by its research priority:
// industry-specific trends rank above general popular trends, which rank
// above meme formats.
type TrendType string

// Trend types in descending priority order.
const (
	TrendIndustry TrendType = "industry_trend"
	TrendViral    TrendType = "viral_trend"
	TrendMeme     TrendType = "viral_meme"
)

// trendPriority orders trend types for ranking. Lower is better.
var trendPriority = map[TrendType]int{
	TrendIndustry: 0,
	TrendViral:    1,
	TrendMeme:     2,
}

// Priority returns the rank band for a trend type; unknown types sort last.
func (t TrendType) Priority() int {
	if p, ok := trendPriority[t]; ok {
		return p
	}
	return len(trendPriority)
}

// TrendOpportunity is one viral trend or meme format a campaign can ride.
type TrendOpportunity struct {
	Type        TrendType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`

	RelevanceScore float64 `json:"relevance_score"` // 0-1, fit to this business
	TrendingScore  float64 `json:"trending_score"`  // 0-1, current momentum

	ContentTypes     []ContentType `json:"content_types,omitempty"`
	PlatformFit      []string      `json:"platform_fit,omitempty"`
	UsageSuggestions []string      `json:"usage_suggestions,omitempty"`
}

// TrendResearch is the full artifact of the trend_research stage.
type TrendResearch struct {
	Opportunities []TrendOpportunity `json:"opportunities"`
	Confidence    float64            `json:"confidence"`
	ResearchedAt  time.Time          `json:"researched_at"`
}
