package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStageOrdering(t *testing.T) {
	if len(StageOrder) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(StageOrder))
	}
	if StageOrder[0] != StageProfileAnalysis || StageOrder[len(StageOrder)-1] != StageFinalize {
		t.Errorf("unexpected stage boundaries: %v", StageOrder)
	}

	// Indexes must strictly increase along the sequence.
	for i, s := range StageOrder {
		if StageIndex(s) != i {
			t.Errorf("StageIndex(%s) = %d, want %d", s, StageIndex(s), i)
		}
	}
	if StageIndex("bogus") != -1 {
		t.Error("unknown stage should index -1")
	}
}

func TestNextStage(t *testing.T) {
	if next := NextStage(StageProfileAnalysis); next != StageTrendResearch {
		t.Errorf("NextStage(profile_analysis) = %s", next)
	}
	if next := NextStage(StageFinalize); next != "" {
		t.Errorf("NextStage(finalize) should be empty, got %s", next)
	}
	if next := NextStage("bogus"); next != "" {
		t.Errorf("NextStage(bogus) should be empty, got %s", next)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobQueued, JobRunning, JobNeedsRetry} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestContentItemSupersede(t *testing.T) {
	now := time.Now().UTC()
	item := &ContentItem{
		ID:      uuid.New(),
		Type:    ContentImage,
		Payload: "original prompt",
		Params:  GenerationParams{Model: "model-a"},
		Verdict: QualityVerdict{Status: VerdictRejected, Score: 40, Reasons: []string{"off brand"}},
	}

	item.Supersede("improved prompt", "", GenerationParams{Model: "model-a", Feedback: "off brand"}, now)

	if item.Payload != "improved prompt" {
		t.Errorf("payload not replaced: %q", item.Payload)
	}
	if item.Verdict.Status != VerdictPending {
		t.Errorf("new version should be pending, got %s", item.Verdict.Status)
	}
	if len(item.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(item.History))
	}
	if item.History[0].Payload != "original prompt" {
		t.Errorf("history did not keep prior payload: %q", item.History[0].Payload)
	}
	if item.History[0].Verdict.Status != VerdictRejected {
		t.Errorf("history did not keep prior verdict: %s", item.History[0].Verdict.Status)
	}
}

func TestTrendTypePriority(t *testing.T) {
	if !(TrendIndustry.Priority() < TrendViral.Priority() && TrendViral.Priority() < TrendMeme.Priority()) {
		t.Error("trend priority must rank industry > viral > meme")
	}
	if TrendType("other").Priority() <= TrendMeme.Priority() {
		t.Error("unknown trend types must sort last")
	}
}
