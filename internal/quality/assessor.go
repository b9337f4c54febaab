// Package quality implements the quality-assessment stage: an LLM judge
// scoring generated content against the tier's approval threshold.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/prompts"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/schemas"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

const assessOp = "quality.assess"

// Assessor implements provider.QualityAssessor with an LLM judge. The
// judge scores 0-100; the policy's threshold decides approval, so the same
// judge output gates differently per tier.
type Assessor struct {
	llm llm.Client
}

// NewAssessor creates a quality assessor backed by the given LLM client.
func NewAssessor(client llm.Client) *Assessor {
	return &Assessor{llm: client}
}

// judgeOutput is the shape the assessment prompt asks the model to produce.
type judgeOutput struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// AssessQuality scores a content item against the business profile and the
// tier threshold. A rejection always carries at least one reason.
func (a *Assessor) AssessQuality(ctx context.Context, item *types.ContentItem, profile *types.BusinessProfile, policy tier.Policy) (types.QualityVerdict, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return types.QualityVerdict{}, provider.Permanent(assessOp, err)
	}

	prompt := prompts.Format(prompts.MustGet("quality.json", "assess_content"), map[string]string{
		"ContentType": string(item.Type),
		"Threshold":   strconv.FormatFloat(policy.QualityThreshold, 'f', -1, 64),
		"Profile":     string(profileJSON),
		"Content":     item.Payload,
	})

	raw, err := a.llm.GenerateJSON(ctx, prompt, policy.QualityModel)
	if err != nil {
		return types.QualityVerdict{}, provider.Transient(assessOp, err)
	}

	if err := schemas.Validate(schemas.QualityVerdict, raw); err != nil {
		return types.QualityVerdict{}, provider.Transient(assessOp, fmt.Errorf("judge produced invalid verdict: %w", err))
	}
	var out judgeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return types.QualityVerdict{}, provider.Transient(assessOp, fmt.Errorf("failed to decode verdict: %w", err))
	}

	verdict := types.QualityVerdict{
		Score:      out.Score,
		Reasons:    out.Reasons,
		AssessedAt: time.Now().UTC(),
	}
	if out.Score >= policy.QualityThreshold {
		verdict.Status = types.VerdictApproved
		return verdict, nil
	}

	verdict.Status = types.VerdictRejected
	if len(verdict.Reasons) == 0 {
		verdict.Reasons = []string{
			fmt.Sprintf("scored %.0f, below the %.0f approval threshold", out.Score, policy.QualityThreshold),
		}
	}
	return verdict, nil
}
