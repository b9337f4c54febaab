// Package content implements the content-generation stage: producing text
// ad copy, image-generation prompts, and video-generation prompts per the
// tier's allowed content types.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/campaign-studio/internal/llm"
	"github.com/jonathan/campaign-studio/internal/prompts"
	"github.com/jonathan/campaign-studio/internal/provider"
	"github.com/jonathan/campaign-studio/internal/schemas"
	"github.com/jonathan/campaign-studio/internal/tier"
	"github.com/jonathan/campaign-studio/internal/types"
)

const generateOp = "content.generate"

// Generator implements provider.ContentGenerator. Text items are finished
// ad copy; image and video items are generation prompts for downstream
// media services, with video going through an intermediate ad script.
type Generator struct {
	llm llm.Client
}

// NewGenerator creates a content generator backed by the given LLM client.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{llm: client}
}

// GenerateContent produces one content item for the request.
func (g *Generator) GenerateContent(ctx context.Context, req provider.GenerateRequest, policy tier.Policy) (*types.ContentItem, error) {
	if !policy.Allows(req.Type) {
		return nil, provider.Permanent(generateOp,
			fmt.Errorf("tier %s does not allow %s content", policy.Tier, req.Type))
	}

	var payload string
	var err error
	switch req.Type {
	case types.ContentText:
		payload, err = g.textAd(ctx, req, policy)
	case types.ContentImage:
		payload, err = g.imagePrompt(ctx, req, policy)
	case types.ContentVideo:
		payload, err = g.videoPrompt(ctx, req, policy)
	default:
		return nil, provider.Permanent(generateOp,
			fmt.Errorf("unknown content type %q", req.Type))
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	modelTier := policy.ModelFor(req.Type)
	return &types.ContentItem{
		ID:      uuid.New(),
		Type:    req.Type,
		Payload: payload,
		Params: types.GenerationParams{
			Model:      g.llm.GetModel(modelTier),
			BrandVoice: req.Input.BrandVoice,
			TrendTitle: trendTitle(req.Trend),
			Feedback:   req.Feedback,
		},
		Verdict:   types.QualityVerdict{Status: types.VerdictPending},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (g *Generator) textAd(ctx context.Context, req provider.GenerateRequest, policy tier.Policy) (string, error) {
	prompt := formatPrompt("text_ad", req)
	out, err := g.llm.GenerateText(ctx, prompt, policy.ModelFor(types.ContentText), true)
	if err != nil {
		return "", provider.Transient(generateOp, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", provider.Transient(generateOp, fmt.Errorf("model produced empty ad copy"))
	}
	return out, nil
}

func (g *Generator) imagePrompt(ctx context.Context, req provider.GenerateRequest, policy tier.Policy) (string, error) {
	prompt := formatPrompt("image_prompt", req)
	out, err := g.llm.GenerateText(ctx, prompt, policy.ModelFor(types.ContentImage), true)
	if err != nil {
		return "", provider.Transient(generateOp, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", provider.Transient(generateOp, fmt.Errorf("model produced empty image prompt"))
	}
	return out, nil
}

// adScript is the intermediate structure a video prompt is built from.
type adScript struct {
	Hook           string   `json:"hook"`
	VoiceoverLines []string `json:"voiceover_lines"`
	Visuals        []string `json:"visuals"`
	CTA            string   `json:"cta"`
}

// videoPrompt generates an ad script first, then renders it into a
// video-generation prompt.
func (g *Generator) videoPrompt(ctx context.Context, req provider.GenerateRequest, policy tier.Policy) (string, error) {
	raw, err := g.llm.GenerateJSON(ctx, formatPrompt("ad_script", req), policy.ModelFor(types.ContentVideo))
	if err != nil {
		return "", provider.Transient(generateOp, err)
	}
	if err := schemas.Validate(schemas.AdScript, raw); err != nil {
		return "", provider.Transient(generateOp, fmt.Errorf("model produced invalid ad script: %w", err))
	}
	var script adScript
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return "", provider.Transient(generateOp, fmt.Errorf("failed to decode ad script: %w", err))
	}
	return buildVideoPrompt(script, req.Input.BrandVoice), nil
}

// buildVideoPrompt renders an ad script into a media-generation prompt. The
// narrative is the voiceover lines joined, prefixed by the hook.
func buildVideoPrompt(script adScript, brandVoice string) string {
	narrative := strings.TrimSpace(script.Hook + " " + strings.Join(script.VoiceoverLines, " "))

	visuals := strings.Join(script.Visuals, ", ")
	if visuals == "" {
		visuals = "professional business setting"
	}

	if brandVoice == "" {
		brandVoice = "professional"
	}

	return prompts.Format(prompts.MustGet("content.json", "video_prompt"), map[string]string{
		"Voice":     brandVoice,
		"Narrative": narrative,
		"Visuals":   visuals,
		"CTA":       script.CTA,
	})
}

// formatPrompt fills a generation prompt with the request's business
// context, trend, and any regeneration feedback.
func formatPrompt(key string, req provider.GenerateRequest) string {
	profileJSON, _ := json.Marshal(req.Profile)

	voice := req.Input.BrandVoice
	if voice == "" {
		voice = "professional"
	}
	goal := req.Input.CampaignGoal
	if goal == "" {
		goal = "awareness"
	}
	audience := req.Input.TargetAudience
	if audience == "" {
		audience = "general local customers"
	}

	return prompts.Format(prompts.MustGet("content.json", key), map[string]string{
		"Profile":  string(profileJSON),
		"Trend":    trendText(req.Trend),
		"Audience": audience,
		"Goal":     goal,
		"Voice":    voice,
		"Feedback": feedbackBlock(req.Feedback),
	})
}

// feedbackBlock renders regeneration feedback for prompt inclusion, or
// empty on first generation.
func feedbackBlock(feedback string) string {
	if strings.TrimSpace(feedback) == "" {
		return ""
	}
	return "\n\nPREVIOUS ATTEMPT WAS REJECTED. Address this feedback directly:\n" + feedback
}

func trendText(trend *types.TrendOpportunity) string {
	if trend == nil {
		return "none in particular"
	}
	return fmt.Sprintf("%s: %s", trend.Title, trend.Description)
}

func trendTitle(trend *types.TrendOpportunity) string {
	if trend == nil {
		return ""
	}
	return trend.Title
}
