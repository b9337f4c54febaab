// Package profile implements the profile-analysis stage: scraping a
// business website and synthesizing a structured BusinessProfile from it.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/campaign-studio/internal/fetch"
	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/prompts"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/schemas"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

const analyzeOp = "profile.analyze"

// maxPromptContent bounds how much scraped page text goes into the
// synthesis prompt.
const maxPromptContent = 8000

// degradedMaxConfidence caps the confidence of a URL-only fallback profile
// so downstream consumers can always tell it apart from a full analysis.
const degradedMaxConfidence = 0.4

// Analyzer implements provider.ProfileAnalyzer by scraping the business
// site with goquery (falling back to headless-browser rendering for
// JS-heavy pages) and synthesizing the profile with an LLM.
type Analyzer struct {
	llm       llm.Client
	fetchOpts *fetch.Options

	// UseBrowser enables the chromedp fallback for pages whose plain
	// HTTP fetch yields too little text. Off in tests and environments
	// without Chrome.
	UseBrowser     bool
	BrowserTimeout time.Duration
}

// NewAnalyzer creates a profile analyzer backed by the given LLM client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{
		llm:            client,
		fetchOpts:      fetch.DefaultOptions(),
		BrowserTimeout: 60 * time.Second,
	}
}

// llmProfile is the shape the synthesis prompt asks the model to produce.
type llmProfile struct {
	BusinessName     string   `json:"business_name"`
	Industry         string   `json:"industry"`
	Description      string   `json:"description"`
	Keywords         []string `json:"keywords"`
	ProductsServices []string `json:"products_services"`
	Differentiators  []string `json:"differentiators"`
	Confidence       float64  `json:"confidence"`
}

// AnalyzeProfile scrapes the URL and synthesizes a business profile. A
// blocked site degrades to a URL-only profile rather than failing the job;
// any other fetch failure is transient and retryable.
func (a *Analyzer) AnalyzeProfile(ctx context.Context, url string, policy tier.Policy) (*types.BusinessProfile, error) {
	result, err := fetch.URL(ctx, url, a.fetchOpts)
	if err != nil {
		err = classifyFetchError(url, err)
		if provider.IsFetchBlocked(err) {
			return a.degradedProfile(ctx, url, policy)
		}
		return nil, err
	}

	html := result.HTML
	text, err := fetch.ExtractMainText(html, fetch.BusinessPageSelectors())
	if err != nil {
		return nil, provider.Permanent(analyzeOp, err)
	}

	// Thin extracted text usually means a client-rendered SPA.
	if a.UseBrowser && fetch.ShouldUseBrowser(text) {
		if rendered, berr := fetch.WithBrowser(ctx, url, a.BrowserTimeout, false); berr == nil {
			if rtext, terr := fetch.ExtractMainText(rendered, fetch.BusinessPageSelectors()); terr == nil && len(rtext) > len(text) {
				html, text = rendered, rtext
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, provider.Permanent(analyzeOp, fmt.Errorf("failed to parse HTML: %w", err))
	}

	metadata := ExtractMetadata(doc)
	scraped := &types.BusinessProfile{
		URL:              url,
		Keywords:         ExtractKeywords(doc, text),
		ProductsServices: IdentifyProductsServices(text),
		Differentiators:  FindDifferentiators(text),
		Contact:          ExtractContact(text),
	}

	synthesized, err := a.synthesize(ctx, url, metadata, text, policy)
	if err != nil {
		return nil, err
	}
	return merge(scraped, synthesized), nil
}

// classifyFetchError translates a fetch failure into the provider taxonomy:
// a blocked site becomes FetchBlockedError (handled by the degraded
// fallback), a malformed URL is permanent, everything else is transient.
func classifyFetchError(url string, err error) error {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		if fe.Blocked() {
			return &provider.FetchBlockedError{URL: url, Reason: fe.Message}
		}
		if fe.Message == "invalid URL" {
			return provider.Permanent(analyzeOp, err)
		}
	}
	return provider.Transient(analyzeOp, err)
}

// synthesize runs the extraction prompt and validates the model's output.
func (a *Analyzer) synthesize(ctx context.Context, url string, metadata map[string]string, text string, policy tier.Policy) (*llmProfile, error) {
	metaJSON, _ := json.Marshal(metadata)
	if len(text) > maxPromptContent {
		text = text[:maxPromptContent]
	}

	prompt := prompts.Format(prompts.MustGet("profile.json", "extract_profile"), map[string]string{
		"URL":      url,
		"Metadata": string(metaJSON),
		"Content":  text,
	})

	raw, err := a.llm.GenerateJSON(ctx, prompt, policy.AnalysisModel)
	if err != nil {
		return nil, provider.Transient(analyzeOp, err)
	}
	return parseProfile(raw)
}

// parseProfile validates and decodes a model-produced profile document.
func parseProfile(raw string) (*llmProfile, error) {
	if err := schemas.Validate(schemas.BusinessProfile, raw); err != nil {
		return nil, provider.Transient(analyzeOp, fmt.Errorf("model produced invalid profile: %w", err))
	}
	var p llmProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, provider.Transient(analyzeOp, fmt.Errorf("failed to decode profile: %w", err))
	}
	return &p, nil
}

// merge folds the LLM synthesis into the scraped signals. The model wins on
// name, industry, and description; scraped lists fill in whatever the model
// left empty, and contact info only ever comes from the page.
func merge(scraped *types.BusinessProfile, synthesized *llmProfile) *types.BusinessProfile {
	out := *scraped
	out.BusinessName = synthesized.BusinessName
	out.Industry = synthesized.Industry
	out.Description = synthesized.Description
	out.Confidence = clamp01(synthesized.Confidence)
	out.AnalyzedAt = time.Now().UTC()

	if len(synthesized.Keywords) > 0 {
		out.Keywords = synthesized.Keywords
	}
	if len(synthesized.ProductsServices) > 0 {
		out.ProductsServices = synthesized.ProductsServices
	}
	if len(synthesized.Differentiators) > 0 {
		out.Differentiators = synthesized.Differentiators
	}
	return &out
}

// degradedProfile builds a low-confidence profile from the URL string alone
// when the site blocks scraping.
func (a *Analyzer) degradedProfile(ctx context.Context, url string, policy tier.Policy) (*types.BusinessProfile, error) {
	prompt := prompts.Format(prompts.MustGet("profile.json", "degraded_profile"), map[string]string{
		"URL": url,
	})

	raw, err := a.llm.GenerateJSON(ctx, prompt, policy.AnalysisModel)
	if err != nil {
		return nil, provider.Transient(analyzeOp, err)
	}
	p, err := parseProfile(raw)
	if err != nil {
		return nil, err
	}

	confidence := clamp01(p.Confidence)
	if confidence > degradedMaxConfidence {
		confidence = degradedMaxConfidence
	}
	return &types.BusinessProfile{
		URL:          url,
		BusinessName: p.BusinessName,
		Industry:     p.Industry,
		Description:  p.Description,
		Keywords:     p.Keywords,
		Confidence:   confidence,
		Degraded:     true,
		AnalyzedAt:   time.Now().UTC(),
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
