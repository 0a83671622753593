package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/pharmascope/pharmascope/internal/llm"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// Positioning tiers assigned from research confidence.
const (
	leaderThreshold     = 0.8
	challengerThreshold = 0.6
)

// AnalysisAgent turns research findings into a structured landscape
// analysis. The LLM is asked for structured JSON; when the response cannot
// be parsed, the structured fields are derived heuristically from the
// research data and the raw response is kept as the full analysis text.
type AnalysisAgent struct {
	generator llm.TextGenerator
}

// NewAnalysisAgent creates an analyst backed by the given generator.
func NewAnalysisAgent(generator llm.TextGenerator) *AnalysisAgent {
	return &AnalysisAgent{generator: generator}
}

// analysisResponse is the JSON shape requested from the model.
type analysisResponse struct {
	KeyInsights     []string `json:"key_insights"`
	Trends          []string `json:"trends"`
	Opportunities   []string `json:"opportunities"`
	Threats         []string `json:"threats"`
	Recommendations []string `json:"recommendations"`
}

// AnalyzeLandscape produces a structured analysis from the research results.
func (a *AnalysisAgent) AnalyzeLandscape(ctx context.Context, results []types.ResearchResult, query string, historical *types.Context) (*types.AnalysisResult, error) {
	log.Printf("agents: analyzing landscape for %d competitors", len(results))

	response, err := a.generator.Complete(ctx, a.analysisPrompt(results, query, historical))
	if err != nil {
		return nil, fmt.Errorf("agents: landscape analysis failed: %w", err)
	}

	analysis := &types.AnalysisResult{
		CompetitivePositioning: positioning(results),
		Metrics:                analysisMetrics(results),
		FullAnalysis:           response,
	}

	var parsed analysisResponse
	if err := json.Unmarshal(extractJSON(response), &parsed); err == nil {
		analysis.KeyInsights = parsed.KeyInsights
		analysis.Trends = parsed.Trends
		analysis.Recommendations = parsed.Recommendations
		for _, o := range parsed.Opportunities {
			analysis.Opportunities = append(analysis.Opportunities, types.Opportunity{Opportunity: o})
		}
		for _, t := range parsed.Threats {
			analysis.Threats = append(analysis.Threats, types.Threat{Threat: t})
		}
	} else {
		log.Printf("agents: analysis response was not structured, deriving insights: %v", err)
		analysis.KeyInsights = fallbackInsights(results)
	}

	log.Printf("agents: analysis completed (%d insights, %d recommendations)",
		len(analysis.KeyInsights), len(analysis.Recommendations))
	return analysis, nil
}

func (a *AnalysisAgent) analysisPrompt(results []types.ResearchResult, query string, historical *types.Context) string {
	var b strings.Builder

	b.WriteString("You are a senior pharmaceutical industry analyst.\n\n")
	fmt.Fprintf(&b, "User query: %s\n\nResearch data:\n", query)

	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s (confidence %.2f)\n", i+1, r.Competitor, r.ConfidenceScore)
		if synthesis, ok := r.Findings["synthesis"]; ok {
			b.WriteString(truncate(synthesis, 1500))
			b.WriteString("\n")
		}
	}

	if !historical.IsEmpty() {
		b.WriteString("\nHistorical context (previous analyses):\n")
		if historical.Summary != "" {
			b.WriteString(historical.Summary)
			b.WriteString("\n")
		}
		for _, p := range historical.PreviousAnalyses {
			fmt.Fprintf(&b, "- %s: %s\n", p.Query, p.Summary)
		}
		b.WriteString("Identify what has changed since the last analysis.\n")
	}

	b.WriteString(`
Respond with a JSON object containing exactly these keys:
{
  "key_insights": ["..."],
  "trends": ["..."],
  "opportunities": ["..."],
  "threats": ["..."],
  "recommendations": ["..."]
}
`)
	return b.String()
}

// positioning classifies competitors by research confidence.
func positioning(results []types.ResearchResult) map[string]string {
	out := make(map[string]string, len(results))
	for _, r := range results {
		switch {
		case r.ConfidenceScore > leaderThreshold:
			out[r.Competitor] = "leader"
		case r.ConfidenceScore > challengerThreshold:
			out[r.Competitor] = "challenger"
		default:
			out[r.Competitor] = "emerging"
		}
	}
	return out
}

func analysisMetrics(results []types.ResearchResult) map[string]any {
	var total float64
	for _, r := range results {
		total += r.ConfidenceScore
	}
	avg := 0.0
	if len(results) > 0 {
		avg = total / float64(len(results))
	}
	return map[string]any{
		"total_competitors_analyzed": len(results),
		"average_confidence":         avg,
		"data_freshness":             "current",
	}
}

// fallbackInsights pulls the first line of each synthesis when the model did
// not return structured JSON.
func fallbackInsights(results []types.ResearchResult) []string {
	var insights []string
	for _, r := range results {
		synthesis := r.Findings["synthesis"]
		if synthesis == "" {
			continue
		}
		line := synthesis
		if idx := strings.IndexByte(line, '\n'); idx > 0 {
			line = line[:idx]
		}
		insights = append(insights, fmt.Sprintf("%s: %s", r.Competitor, truncate(line, 200)))
	}
	return insights
}

// extractJSON returns the outermost JSON object in the model response.
// Models often wrap JSON in prose or code fences.
func extractJSON(s string) []byte {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return []byte(s)
	}
	return []byte(s[start : end+1])
}

// truncate cuts s to at most max bytes on a rune boundary, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
