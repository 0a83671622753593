// Package types defines the shared domain types for PharmaScope:
// research findings, analysis results, reports, evaluations, and the
// historical-context bundle exchanged between the memory bank, the
// context compactor, and the orchestrator.
package types

import "time"

// ResearchResult holds the findings for a single competitor produced by
// the research collaborator. Ordinary "nothing found" cases are expressed
// through empty Findings, never through an error.
type ResearchResult struct {
	// Competitor is the company the research was run for.
	Competitor string `json:"competitor"`

	// TherapeuticAreas lists the areas the research was scoped to.
	TherapeuticAreas []string `json:"therapeutic_areas,omitempty"`

	// Findings contains the structured research output keyed by dimension
	// (pipeline, trials, approvals, news).
	Findings map[string]string `json:"findings"`

	// Sources lists the provenance of the findings (URLs, registry ids).
	Sources []string `json:"sources,omitempty"`

	// ConfidenceScore is the researcher's self-reported confidence (0.0–1.0).
	ConfidenceScore float64 `json:"confidence_score"`

	// Timestamp is when the research completed.
	Timestamp time.Time `json:"timestamp"`
}

// Opportunity is a market opportunity surfaced by the analysis collaborator.
type Opportunity struct {
	Opportunity string `json:"opportunity"`
	Rationale   string `json:"rationale,omitempty"`
}

// Threat is a competitive threat surfaced by the analysis collaborator.
type Threat struct {
	Threat   string `json:"threat"`
	Severity string `json:"severity,omitempty"`
}

// AnalysisResult is the structured output of the analysis collaborator.
type AnalysisResult struct {
	// KeyInsights are the headline findings, most important first.
	KeyInsights []string `json:"key_insights"`

	// CompetitivePositioning classifies each competitor's market position.
	CompetitivePositioning map[string]string `json:"competitive_positioning"`

	// Trends lists directional movements observed across competitors.
	Trends []string `json:"trends"`

	Opportunities   []Opportunity `json:"opportunities"`
	Threats         []Threat      `json:"threats"`
	Recommendations []string      `json:"recommendations"`

	// Metrics carries quality indicators (average_confidence, data_freshness).
	Metrics map[string]any `json:"metrics,omitempty"`

	// FullAnalysis is the unstructured long-form analysis text.
	FullAnalysis string `json:"full_analysis,omitempty"`
}

// Report is the output of the report collaborator.
type Report struct {
	ExecutiveSummary    string            `json:"executive_summary"`
	CompetitiveOverview string            `json:"competitive_overview"`
	Trends              []string          `json:"trends"`
	Opportunities       []Opportunity     `json:"opportunities"`
	Threats             []Threat          `json:"threats"`
	Recommendations     []string          `json:"recommendations"`
	Appendix            string            `json:"appendix,omitempty"`
	FullReport          string            `json:"full_report,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// Evaluation scores the quality of one completed run.
type Evaluation struct {
	Timestamp    time.Time          `json:"timestamp"`
	Query        string             `json:"query"`
	Scores       map[string]float64 `json:"scores"`
	OverallScore float64            `json:"overall_score"`
	Grade        string             `json:"grade"`
	Feedback     []string           `json:"feedback"`
}

// AnalysisSummary is the digest of one stored analysis carried in a Context.
type AnalysisSummary struct {
	ID string `json:"id"`

	// Query is the query the stored analysis answered.
	Query string `json:"query"`

	// Summary is a short digest built from the first key insights.
	Summary string `json:"summary"`

	Timestamp time.Time `json:"timestamp"`
}

// ProfileEntry is one insight snapshot in a competitor profile's history.
type ProfileEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Insights  []string  `json:"insights"`
}

// KnownState holds the latest derived facts for a competitor.
type KnownState struct {
	Trends   []string          `json:"trends"`
	Position map[string]string `json:"position"`
}

// ProfileContext is the per-competitor slice of a Context. Before compaction
// it carries the full history; compaction drops the history and keeps only a
// single derived trend string.
type ProfileContext struct {
	// History holds the raw insight snapshots. Dropped by compaction.
	History []ProfileEntry `json:"history,omitempty"`

	LastKnownState *KnownState `json:"last_known_state,omitempty"`
	LastUpdated    time.Time   `json:"last_updated"`

	// RecentTrend is derived from the most recent history entry during
	// compaction. Empty on uncompacted contexts.
	RecentTrend string `json:"recent_trend,omitempty"`
}

// Context is the historical-context bundle assembled by the memory bank and
// consumed by the orchestrator. It is a transient derived view: never
// persisted, rebuilt from storage on every run.
type Context struct {
	PreviousAnalyses   []AnalysisSummary         `json:"previous_analyses,omitempty"`
	CompetitorProfiles map[string]ProfileContext `json:"competitor_profiles,omitempty"`

	// Summary is a short human-readable synopsis of the context.
	Summary string `json:"summary,omitempty"`

	// KeyPoints is populated by compaction only.
	KeyPoints []string `json:"key_points,omitempty"`

	// RelatedInsights carries embedding-matched insight snippets when the
	// storage backend supports similarity search. Best effort, often empty.
	RelatedInsights []string `json:"related_insights,omitempty"`
}

// IsEmpty reports whether the context carries no usable history.
func (c *Context) IsEmpty() bool {
	if c == nil {
		return true
	}
	return len(c.PreviousAnalyses) == 0 &&
		len(c.CompetitorProfiles) == 0 &&
		c.Summary == "" &&
		len(c.KeyPoints) == 0 &&
		len(c.RelatedInsights) == 0
}
