package types

import "github.com/go-playground/validator/v10"

// SubmitJobRequest is the campaign submission payload. The AI work happens
// asynchronously; submission only registers the job.
type SubmitJobRequest struct {
	BusinessURL    string `json:"business_url" validate:"required,url"`
	TargetAudience string `json:"target_audience,omitempty" validate:"max=200"`
	CampaignGoal   string `json:"campaign_goal,omitempty" validate:"omitempty,oneof=leads awareness sales engagement"`
	BrandVoice     string `json:"brand_voice,omitempty" validate:"omitempty,oneof=professional friendly playful bold authoritative"`
	Title          string `json:"title,omitempty" validate:"max=200"`
}

// RegenerateRequest asks for a single content type of a completed job to be
// regenerated with user feedback.
type RegenerateRequest struct {
	ContentType ContentType `json:"content_type" validate:"required,oneof=text image video"`
	Feedback    string      `json:"feedback,omitempty" validate:"max=2000"`
}

// Validate validates the SubmitJobRequest using the validator.
func (r *SubmitJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RegenerateRequest using the validator.
func (r *RegenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Input converts the request into the job input payload.
func (r *SubmitJobRequest) Input() CampaignInput {
	return CampaignInput{
		BusinessURL:    r.BusinessURL,
		TargetAudience: r.TargetAudience,
		CampaignGoal:   r.CampaignGoal,
		BrandVoice:     r.BrandVoice,
		Title:          r.Title,
	}
}
