package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pharmascope/pharmascope/internal/llm"
	"github.com/pharmascope/pharmascope/internal/observability"
	"github.com/pharmascope/pharmascope/internal/tools"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// baseConfidence is the researcher's confidence before any tool evidence.
const baseConfidence = 0.5

// ResearchAgent gathers competitive intelligence from the external data
// tools and synthesizes findings with the LLM. Tools are capability-detected
// at call time: an unavailable tool contributes nothing instead of failing
// the run.
type ResearchAgent struct {
	generator llm.TextGenerator
	search    *tools.SearchTool
	fda       *tools.FDATool
	trials    *tools.ClinicalTrialsTool
	metrics   *observability.Collector
}

// NewResearchAgent creates a researcher with the given generator and tools.
// Any tool may be nil; it is treated as unavailable.
func NewResearchAgent(generator llm.TextGenerator, search *tools.SearchTool, fda *tools.FDATool, trials *tools.ClinicalTrialsTool, metrics *observability.Collector) *ResearchAgent {
	return &ResearchAgent{
		generator: generator,
		search:    search,
		fda:       fda,
		trials:    trials,
		metrics:   metrics,
	}
}

// ResearchCompetitor collects findings for one competitor. Tool data is
// gathered first, then the LLM synthesizes a narrative over it. Tool
// failures degrade the result; only a synthesis failure is an error.
func (a *ResearchAgent) ResearchCompetitor(ctx context.Context, competitor string, areas []string, historical *types.Context) (*types.ResearchResult, error) {
	log.Printf("agents: researching competitor %s", competitor)

	findings := make(map[string]string)
	var sources []string
	confidence := baseConfidence

	if a.fda != nil && a.fda.Available() {
		if records := a.fda.SearchDrugs(ctx, competitor, 10); len(records) > 0 {
			a.recordTool("fda")
			findings["fda_approvals"] = formatDrugRecords(records)
			sources = append(sources, "openFDA drug database")
			confidence += 0.15
		}
	}

	if a.trials != nil && a.trials.Available() {
		if records := a.trials.SearchTrials(ctx, competitor, areas, 10); len(records) > 0 {
			a.recordTool("clinicaltrials")
			findings["clinical_trials"] = formatTrialRecords(records)
			sources = append(sources, "ClinicalTrials.gov")
			confidence += 0.15
		}
	}

	if a.search != nil && a.search.Available() {
		query := competitor + " drug pipeline news"
		if len(areas) > 0 {
			query = competitor + " " + strings.Join(areas, " ") + " pipeline news"
		}
		if results := a.search.Search(ctx, query, 5); len(results) > 0 {
			a.recordTool("search")
			findings["news"] = formatSearchResults(results)
			for _, r := range results {
				if r.Source != "" {
					sources = append(sources, r.Source)
				}
			}
			confidence += 0.1
		}
	}

	synthesis, err := a.generator.Complete(ctx, a.researchPrompt(competitor, areas, findings, historical))
	if err != nil {
		return nil, fmt.Errorf("agents: research synthesis for %s failed: %w", competitor, err)
	}
	findings["synthesis"] = synthesis

	if confidence > 1.0 {
		confidence = 1.0
	}

	result := &types.ResearchResult{
		Competitor:       competitor,
		TherapeuticAreas: areas,
		Findings:         findings,
		Sources:          dedupe(sources),
		ConfidenceScore:  confidence,
		Timestamp:        time.Now(),
	}

	log.Printf("agents: research completed for %s (%d findings, confidence %.2f)",
		competitor, len(findings), confidence)
	return result, nil
}

func (a *ResearchAgent) researchPrompt(competitor string, areas []string, findings map[string]string, historical *types.Context) string {
	var b strings.Builder

	b.WriteString("You are a pharmaceutical research specialist.\n\n")
	fmt.Fprintf(&b, "Research %s", competitor)
	if len(areas) > 0 {
		fmt.Fprintf(&b, " in the following therapeutic areas: %s", strings.Join(areas, ", "))
	}
	b.WriteString("\n\nGather information on:\n")
	b.WriteString("1. Current drug pipeline (by development phase)\n")
	b.WriteString("2. Recent clinical trial results and ongoing trials\n")
	b.WriteString("3. FDA approvals in the last 12 months\n")
	b.WriteString("4. Recent partnerships or acquisitions\n")
	b.WriteString("5. Market share and competitive positioning\n")

	if data, ok := findings["fda_approvals"]; ok {
		b.WriteString("\nFDA approval data:\n")
		b.WriteString(data)
		b.WriteString("\n")
	}
	if data, ok := findings["clinical_trials"]; ok {
		b.WriteString("\nClinical trial data:\n")
		b.WriteString(data)
		b.WriteString("\n")
	}
	if data, ok := findings["news"]; ok {
		b.WriteString("\nRecent news:\n")
		b.WriteString(data)
		b.WriteString("\n")
	}

	if !historical.IsEmpty() && historical.Summary != "" {
		b.WriteString("\nHistorical context (use this to identify what's new):\n")
		b.WriteString(historical.Summary)
		b.WriteString("\n")
	}

	b.WriteString("\nSummarize the competitive position in a concise narrative.")
	return b.String()
}

func (a *ResearchAgent) recordTool(name string) {
	if a.metrics != nil {
		a.metrics.RecordToolUsage(name)
	}
}

func formatDrugRecords(records []tools.DrugRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.BrandName, r.ApplicationNumber, r.ApprovalStatus)
	}
	return b.String()
}

func formatTrialRecords(records []tools.TrialRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- %s [%s, %s]: %s\n", r.Title, r.Phase, r.Status, r.NCTID)
	}
	return b.String()
}

func formatSearchResults(results []tools.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
	}
	return b.String()
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
