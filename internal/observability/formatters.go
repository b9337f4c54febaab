// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/campaign-studio/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs a human-readable summary of the analyzed business.
func (p *Printer) PrintProfile(profile *types.BusinessProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Business:  %s\n", profile.BusinessName))
	sb.WriteString(fmt.Sprintf("Industry:  %s\n", profile.Industry))
	sb.WriteString(fmt.Sprintf("Confidence: %.2f", profile.Confidence))
	if profile.Degraded {
		sb.WriteString(" (degraded: site blocked scraping)")
	}
	sb.WriteString("\n")

	if len(profile.Keywords) > 0 {
		sb.WriteString("\nKeywords:\n")
		count := min(len(profile.Keywords), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", profile.Keywords[i]))
		}
		if len(profile.Keywords) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(profile.Keywords)-maxItemsToShow))
		}
	}

	if len(profile.Differentiators) > 0 {
		sb.WriteString("\nDifferentiators:\n")
		count := min(len(profile.Differentiators), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", profile.Differentiators[i]))
		}
	}

	p.printBox("BUSINESS PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResearch outputs the ranked trend opportunities with scores.
func (p *Printer) PrintResearch(research *types.TrendResearch) {
	if research == nil || len(research.Opportunities) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Opportunities found: %d", len(research.Opportunities)))
	sb.WriteString(fmt.Sprintf("  (confidence %.2f)\n\n", research.Confidence))

	count := min(len(research.Opportunities), maxItemsToShow)
	for i := 0; i < count; i++ {
		opp := research.Opportunities[i]
		sb.WriteString(fmt.Sprintf("#%d  [%s] %s\n", i+1, opp.Type, opp.Title))
		sb.WriteString(fmt.Sprintf("    Relevance: %.2f", opp.RelevanceScore))
		if opp.TrendingScore > 0 {
			sb.WriteString(fmt.Sprintf("  Trending: %.2f", opp.TrendingScore))
		}
		sb.WriteString("\n")
		if len(opp.ContentTypes) > 0 {
			names := make([]string, len(opp.ContentTypes))
			for j, ct := range opp.ContentTypes {
				names[j] = string(ct)
			}
			sb.WriteString(fmt.Sprintf("    Suits: %s\n", strings.Join(names, ", ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(research.Opportunities) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(research.Opportunities)-maxItemsToShow))
	}

	p.printBox("TREND RESEARCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintItem outputs one generated content item with its verdict.
func (p *Printer) PrintItem(item *types.ContentItem) {
	if item == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Model:   %s\n", item.Params.Model))
	sb.WriteString(fmt.Sprintf("Verdict: %s", item.Verdict.Status))
	if item.Verdict.Status != types.VerdictPending {
		sb.WriteString(fmt.Sprintf(" (score %.0f)", item.Verdict.Score))
	}
	sb.WriteString("\n")
	for _, reason := range item.Verdict.Reasons {
		sb.WriteString(fmt.Sprintf("  • %s\n", reason))
	}

	payload := item.Payload
	if len(payload) > 300 {
		payload = payload[:297] + "..."
	}
	sb.WriteString("\n")
	sb.WriteString(payload)

	p.printBox(fmt.Sprintf("CONTENT: %s", strings.ToUpper(string(item.Type))), sb.String())
}

// PrintPackage outputs the delivered package summary.
func (p *Printer) PrintPackage(pkg *types.CampaignPackage) {
	if pkg == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tier:           %s\n", pkg.Metadata.TierUsed))
	sb.WriteString(fmt.Sprintf("Content pieces: %d\n", pkg.Metadata.ContentPieces))
	if len(pkg.Metadata.ModelsUsed) > 0 {
		sb.WriteString(fmt.Sprintf("Models:         %s\n", strings.Join(pkg.Metadata.ModelsUsed, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Quality:        %.2f\n", pkg.Metadata.QualityConfidence))

	if len(pkg.OmittedTypes) > 0 {
		names := make([]string, len(pkg.OmittedTypes))
		for i, ct := range pkg.OmittedTypes {
			names[i] = string(ct)
		}
		sb.WriteString(fmt.Sprintf("Omitted:        %s\n", strings.Join(names, ", ")))
	}

	p.printBox("CAMPAIGN PACKAGE", strings.TrimSuffix(sb.String(), "\n"))
}
