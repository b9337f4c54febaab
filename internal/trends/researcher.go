// Package trends implements the trend-research stage: discovering viral
// opportunities for a business, ranked industry trends first, then general
// popular trends, then meme formats.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/prompts"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/schemas"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

const researchOp = "trends.research"

// fallbackConfidence scores catalog-only research, which never reflects
// what is actually trending right now.
const fallbackConfidence = 0.3

// Researcher implements provider.TrendResearcher by expanding the
// industry-keyword and meme catalogs through an LLM.
type Researcher struct {
	llm llm.Client
}

// NewResearcher creates a trend researcher backed by the given LLM client.
func NewResearcher(client llm.Client) *Researcher {
	return &Researcher{llm: client}
}

// ResearchTrends discovers opportunities for the business. When the model
// call fails after the pipeline's retries are exhausted upstream, callers
// can fall back to Fallback for a catalog-only result.
func (r *Researcher) ResearchTrends(ctx context.Context, profile *types.BusinessProfile, policy tier.Policy) (*types.TrendResearch, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, provider.Permanent(researchOp, err)
	}

	prompt := prompts.Format(prompts.MustGet("trends.json", "expand_trends"), map[string]string{
		"Profile": string(profileJSON),
		"Seeds":   strings.Join(seedKeywords(profile.Industry, profile.Keywords), ", "),
		"Memes":   memeCatalogText(),
	})

	raw, err := r.llm.GenerateJSON(ctx, prompt, policy.ResearchModel)
	if err != nil {
		return nil, provider.Transient(researchOp, err)
	}

	research, err := parseResearch(raw)
	if err != nil {
		return nil, err
	}

	Rank(research.Opportunities)
	research.ResearchedAt = time.Now().UTC()
	return research, nil
}

// parseResearch validates and decodes a model-produced research document.
func parseResearch(raw string) (*types.TrendResearch, error) {
	if err := schemas.Validate(schemas.TrendResearch, raw); err != nil {
		return nil, provider.Transient(researchOp, fmt.Errorf("model produced invalid research: %w", err))
	}
	var research types.TrendResearch
	if err := json.Unmarshal([]byte(raw), &research); err != nil {
		return nil, provider.Transient(researchOp, fmt.Errorf("failed to decode research: %w", err))
	}
	return &research, nil
}

// Rank sorts opportunities by priority band (industry, viral, meme), then
// by relevance within a band, then by momentum as the tie-breaker. The sort
// is stable so equally-scored entries keep the model's ordering.
func Rank(opps []types.TrendOpportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if pa, pb := a.Type.Priority(), b.Type.Priority(); pa != pb {
			return pa < pb
		}
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.TrendingScore > b.TrendingScore
	})
}

// Fallback builds a catalog-only research result for when live research is
// unavailable. Low confidence, but enough signal to generate from.
func Fallback(profile *types.BusinessProfile) *types.TrendResearch {
	var opps []types.TrendOpportunity

	for _, kw := range seedKeywords(profile.Industry, profile.Keywords) {
		opps = append(opps, types.TrendOpportunity{
			Type:           types.TrendIndustry,
			Title:          kw,
			Description:    fmt.Sprintf("Evergreen %s topic: %s", profile.Industry, kw),
			RelevanceScore: 0.6,
			TrendingScore:  0.5,
			ContentTypes:   []types.ContentType{types.ContentText, types.ContentImage},
			PlatformFit:    []string{"facebook", "instagram"},
		})
		if len(opps) >= 4 {
			break
		}
	}

	for i, tmpl := range memeCatalog {
		if i >= 3 {
			break
		}
		opps = append(opps, types.TrendOpportunity{
			Type:             types.TrendMeme,
			Title:            tmpl.Description,
			Description:      fmt.Sprintf("Use the %s format to highlight your business", tmpl.Type),
			RelevanceScore:   0.5,
			TrendingScore:    0.8,
			ContentTypes:     []types.ContentType{types.ContentImage},
			PlatformFit:      tmpl.Platforms,
			UsageSuggestions: memeSuggestions(tmpl, profile.Industry),
		})
	}

	Rank(opps)
	return &types.TrendResearch{
		Opportunities: opps,
		Confidence:    fallbackConfidence,
		ResearchedAt:  time.Now().UTC(),
	}
}

// memeSuggestions turns a meme template into concrete usage ideas for the
// business's industry.
func memeSuggestions(tmpl memeTemplate, industry string) []string {
	switch tmpl.Type {
	case "before_after":
		return []string{
			fmt.Sprintf("Show before/after results of your %s services", industry),
			"Customer transformation stories",
		}
	case "how_it_started":
		return []string{
			"Company founding story vs current success",
			"Business growth journey",
		}
	case "relatable_moments":
		return []string{
			fmt.Sprintf("Relatable %s customer experiences", industry),
			"Common customer pain points you solve",
		}
	case "expectation_reality":
		return []string{
			"Customer expectations vs amazing results",
			"Competitor promises vs your delivery",
		}
	default:
		return []string{
			fmt.Sprintf("Adapt the %s format to your %s business", tmpl.Type, industry),
		}
	}
}

// memeCatalogText renders the meme catalog for prompt inclusion.
func memeCatalogText() string {
	var sb strings.Builder
	for _, tmpl := range memeCatalog {
		fmt.Fprintf(&sb, "- %s (%s): best on %s\n",
			tmpl.Description, tmpl.Type, strings.Join(tmpl.Platforms, ", "))
	}
	return sb.String()
}

// Best returns the highest-ranked opportunity suited to the given content
// type, or the overall best when none declares a fit.
func Best(research *types.TrendResearch, ct types.ContentType) *types.TrendOpportunity {
	if research == nil || len(research.Opportunities) == 0 {
		return nil
	}
	for i := range research.Opportunities {
		opp := &research.Opportunities[i]
		if len(opp.ContentTypes) == 0 {
			continue
		}
		for _, t := range opp.ContentTypes {
			if t == ct {
				return opp
			}
		}
	}
	return &research.Opportunities[0]
}
