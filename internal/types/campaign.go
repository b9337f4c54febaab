// Package types provides type definitions for structured data used throughout the campaign-studio system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a subscription tier snapshotted onto a job at submission time.
// A mid-run upgrade or downgrade never changes an in-flight job.
type Tier string

// Subscription tiers, in ascending order of capability.
const (
	TierBasic      Tier = "basic"      // text ads only
	TierPlus       Tier = "plus"       // + image generation
	TierPro        Tier = "pro"        // + video generation
	TierEnterprise Tier = "enterprise" // + higher regeneration caps and thresholds
)

// Stage is one ordered step of the campaign pipeline.
type Stage string

// Pipeline stages, executed strictly in this order.
const (
	StageProfileAnalysis   Stage = "profile_analysis"
	StageTrendResearch     Stage = "trend_research"
	StageContentGeneration Stage = "content_generation"
	StageQualityAssessment Stage = "quality_assessment"
	StageFinalize          Stage = "finalize"
)

// StageOrder is the fixed stage sequence. Percent-complete estimates and
// resume-after-crash logic both derive from the index into this slice.
var StageOrder = []Stage{
	StageProfileAnalysis,
	StageTrendResearch,
	StageContentGeneration,
	StageQualityAssessment,
	StageFinalize,
}

// StageIndex returns the position of a stage in the fixed sequence,
// or -1 for an unknown stage.
func StageIndex(s Stage) int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after s, or empty string if s is the last
// stage or unknown.
func NextStage(s Stage) Stage {
	i := StageIndex(s)
	if i < 0 || i+1 >= len(StageOrder) {
		return ""
	}
	return StageOrder[i+1]
}

// JobStatus is the lifecycle status of a campaign job.
type JobStatus string

// Job statuses. completed, failed and cancelled are terminal.
const (
	JobQueued     JobStatus = "queued"
	JobRunning    JobStatus = "running"
	JobNeedsRetry JobStatus = "needs_retry"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether the status is a terminal state.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// CampaignInput holds the user-supplied inputs a job is generated from.
type CampaignInput struct {
	BusinessURL    string `json:"business_url"`
	TargetAudience string `json:"target_audience,omitempty"`
	CampaignGoal   string `json:"campaign_goal,omitempty"`
	BrandVoice     string `json:"brand_voice,omitempty"`
	Title          string `json:"title,omitempty"`
}

// JobError records why a job failed, by stage, in user-presentable form.
// Raw provider error text never leaves the pipeline boundary.
type JobError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// RegenRequest is a pending user-initiated regeneration of one content
// type. It rides on the job record so a worker picks it up asynchronously;
// request handlers never run generation themselves.
type RegenRequest struct {
	ContentType ContentType `json:"content_type"`
	Feedback    string      `json:"feedback,omitempty"`
}

// Job is one user's end-to-end campaign-generation request and its
// accumulated state. It is owned by the job store; the pipeline engine only
// ever holds a transient working copy while advancing it.
type Job struct {
	ID     uuid.UUID     `json:"id"`
	UserID uuid.UUID     `json:"user_id"`
	Input  CampaignInput `json:"input"`
	Tier   Tier          `json:"tier"`

	Stage  Stage     `json:"stage"`
	Status JobStatus `json:"status"`

	// Attempts counts claims of the current execution, including reclaims
	// after a worker crash. Re-queueing a completed job for regeneration
	// resets it.
	Attempts int `json:"attempts"`

	// Version supports optimistic concurrency in the job store: every
	// successful update increments it, and updates carrying a stale
	// version are rejected.
	Version int64 `json:"version"`

	// CancelRequested asks the engine to stop at the next stage boundary.
	CancelRequested bool `json:"cancel_requested,omitempty"`

	// WorkerID identifies the worker currently executing the job. Empty
	// while queued or after the job reaches a terminal status.
	WorkerID string `json:"worker_id,omitempty"`

	// Regen, when set, tells the engine this run is a single-content-type
	// regeneration rather than a full pipeline pass.
	Regen *RegenRequest `json:"regen,omitempty"`

	// Per-stage artifacts.
	Profile  *BusinessProfile             `json:"profile,omitempty"`
	Research *TrendResearch               `json:"research,omitempty"`
	Items    map[ContentType]*ContentItem `json:"items,omitempty"`
	Package  *CampaignPackage             `json:"package,omitempty"`

	Error *JobError `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	HeartbeatAt *time.Time `json:"heartbeat_at,omitempty"`
}

// Item returns the job's content item of the given type, or nil.
func (j *Job) Item(t ContentType) *ContentItem {
	if j.Items == nil {
		return nil
	}
	return j.Items[t]
}

// SetItem stores a content item on the job, allocating the map on first use.
func (j *Job) SetItem(item *ContentItem) {
	if j.Items == nil {
		j.Items = make(map[ContentType]*ContentItem)
	}
	j.Items[item.Type] = item
}
