package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pharmascope/pharmascope/internal/llm"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// ErrUnsupportedFormat is returned by Export for formats other than
// markdown and json.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// executiveSummaryFallback is how much of the report text stands in for the
// executive summary when the model did not emit a labeled section.
const executiveSummaryFallback = 500

// ReportAgent renders an analysis into an executive report.
type ReportAgent struct {
	generator llm.TextGenerator
}

// NewReportAgent creates a reporter backed by the given generator.
func NewReportAgent(generator llm.TextGenerator) *ReportAgent {
	return &ReportAgent{generator: generator}
}

// GenerateReport produces the final report from research and analysis.
func (a *ReportAgent) GenerateReport(ctx context.Context, results []types.ResearchResult, analysis *types.AnalysisResult, query string) (*types.Report, error) {
	log.Printf("agents: generating report for query %q", query)

	response, err := a.generator.Complete(ctx, a.reportPrompt(results, analysis, query))
	if err != nil {
		return nil, fmt.Errorf("agents: report generation failed: %w", err)
	}

	report := &types.Report{
		ExecutiveSummary:    extractSection(response, "EXECUTIVE SUMMARY", "COMPETITIVE OVERVIEW"),
		CompetitiveOverview: extractSection(response, "COMPETITIVE OVERVIEW", "DETAILED ANALYSIS"),
		Trends:              analysis.Trends,
		Opportunities:       analysis.Opportunities,
		Threats:             analysis.Threats,
		Recommendations:     analysis.Recommendations,
		Appendix:            fmt.Sprintf("Competitors analyzed: %d. Sources: %s.", len(results), strings.Join(collectSources(results), ", ")),
		FullReport:          response,
		Metadata: map[string]string{
			"query":        query,
			"generated_at": time.Now().Format(time.RFC3339),
			"model":        a.generator.Model(),
		},
	}

	log.Printf("agents: report generated (%d chars)", len(response))
	return report, nil
}

func (a *ReportAgent) reportPrompt(results []types.ResearchResult, analysis *types.AnalysisResult, query string) string {
	var b strings.Builder

	b.WriteString("You are an expert pharmaceutical industry report writer.\n")
	b.WriteString("Generate a professional competitive landscape report for an executive audience.\n\n")
	fmt.Fprintf(&b, "Query: %s\nDate: %s\n\n", query, time.Now().Format("January 2, 2006"))

	fmt.Fprintf(&b, "Competitors analyzed: %d\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Competitor)
	}

	b.WriteString("\nKey insights:\n")
	for _, insight := range analysis.KeyInsights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	b.WriteString("\nRecommendations:\n")
	for _, rec := range analysis.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	if analysis.FullAnalysis != "" {
		b.WriteString("\nAnalysis detail:\n")
		b.WriteString(truncate(analysis.FullAnalysis, 1000))
		b.WriteString("\n")
	}

	b.WriteString(`
Structure the report with these uppercase section headers:
EXECUTIVE SUMMARY
COMPETITIVE OVERVIEW
DETAILED ANALYSIS
TRENDS & INSIGHTS
OPPORTUNITIES & THREATS
STRATEGIC RECOMMENDATIONS
`)
	return b.String()
}

// Export renders the report in the given format. Markdown and json are
// supported; anything else fails fast with ErrUnsupportedFormat.
func (a *ReportAgent) Export(report *types.Report, format string) (string, error) {
	switch format {
	case "markdown":
		return exportMarkdown(report), nil
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("agents: failed to marshal report: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func exportMarkdown(report *types.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Competitive Landscape Report: %s\n\n", report.Metadata["query"])
	fmt.Fprintf(&b, "**Date:** %s\n\n", report.Metadata["generated_at"])

	b.WriteString("## Executive Summary\n\n")
	b.WriteString(report.ExecutiveSummary)
	b.WriteString("\n\n## Competitive Overview\n\n")
	b.WriteString(report.CompetitiveOverview)

	b.WriteString("\n\n## Key Trends\n\n")
	for _, t := range report.Trends {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	b.WriteString("\n## Opportunities\n\n")
	for _, o := range report.Opportunities {
		fmt.Fprintf(&b, "- **%s**", o.Opportunity)
		if o.Rationale != "" {
			fmt.Fprintf(&b, ": %s", o.Rationale)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Threats\n\n")
	for _, t := range report.Threats {
		fmt.Fprintf(&b, "- **%s**", t.Threat)
		if t.Severity != "" {
			fmt.Fprintf(&b, " (severity: %s)", t.Severity)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Recommendations\n\n")
	for _, r := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	if report.Appendix != "" {
		b.WriteString("\n## Appendix\n\n")
		b.WriteString(report.Appendix)
		b.WriteString("\n")
	}

	return b.String()
}

// extractSection pulls the text between two uppercase section headers.
// Missing headers fall back to the leading slice of the report.
func extractSection(text, start, end string) string {
	si := strings.Index(text, start)
	if si < 0 {
		return truncate(text, executiveSummaryFallback)
	}
	rest := text[si+len(start):]
	if ei := strings.Index(rest, end); ei > 0 {
		rest = rest[:ei]
	}
	return strings.TrimSpace(rest)
}

func collectSources(results []types.ResearchResult) []string {
	var sources []string
	for _, r := range results {
		sources = append(sources, r.Sources...)
	}
	return dedupe(sources)
}
