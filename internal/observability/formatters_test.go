package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/campaign-studio/internal/types"
)

func TestPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	profile := &types.BusinessProfile{
		BusinessName:    "Apex Roofing",
		Industry:        "construction",
		Confidence:      0.85,
		Keywords:        []string{"roofing", "repair", "storm damage"},
		Differentiators: []string{"only 24-hour crew in the county"},
	}

	p.PrintProfile(profile)
	output := buf.String()

	assert.Contains(t, output, "BUSINESS PROFILE")
	assert.Contains(t, output, "Apex Roofing")
	assert.Contains(t, output, "construction")
	assert.Contains(t, output, "roofing")
	assert.Contains(t, output, "24-hour crew")
}

func TestPrintProfileDegraded(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProfile(&types.BusinessProfile{
		BusinessName: "example", Industry: "retail", Confidence: 0.3, Degraded: true,
	})

	assert.Contains(t, buf.String(), "degraded")
}

func TestPrintResearch(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResearch(&types.TrendResearch{
		Opportunities: []types.TrendOpportunity{
			{
				Type: types.TrendIndustry, Title: "Storm season prep",
				RelevanceScore: 0.9, TrendingScore: 0.7,
				ContentTypes: []types.ContentType{types.ContentText, types.ContentVideo},
			},
		},
		Confidence: 0.6,
	})
	output := buf.String()

	assert.Contains(t, output, "TREND RESEARCH")
	assert.Contains(t, output, "Storm season prep")
	assert.Contains(t, output, "text, video")
}

func TestPrintItemTruncatesPayload(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	p.PrintItem(&types.ContentItem{
		Type:    types.ContentText,
		Payload: string(long),
		Params:  types.GenerationParams{Model: "gemini-2.5-flash"},
		Verdict: types.QualityVerdict{Status: types.VerdictApproved, Score: 88},
	})
	output := buf.String()

	assert.Contains(t, output, "CONTENT: TEXT")
	assert.Contains(t, output, "gemini-2.5-flash")
	assert.Contains(t, output, "approved")
	assert.Contains(t, output, "...")
}

func TestPrintNilArtifactsAreSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProfile(nil)
	p.PrintResearch(nil)
	p.PrintItem(nil)
	p.PrintPackage(nil)

	assert.Empty(t, buf.String())
}
