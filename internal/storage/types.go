package storage

import (
	"errors"
	"time"

	"github.com/pharmascope/pharmascope/pkg/types"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// AnalysisRecord is the durable record of one completed run, independent of
// sessions. Its ID is derived deterministically from (query, timestamp), so
// re-storing the same pair overwrites rather than duplicates.
type AnalysisRecord struct {
	// ID is a collision-resistant digest of the query and timestamp.
	ID string `json:"id"`

	// Query is the natural-language query the run answered.
	Query string `json:"query"`

	// Competitors is the set of competitor names the run covered.
	Competitors []string `json:"competitors"`

	// Results is the structured analysis payload.
	Results *types.AnalysisResult `json:"results"`

	// Timestamp is when the analysis completed.
	Timestamp time.Time `json:"timestamp"`

	// Metadata carries bookkeeping values (stored_at and similar).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CompetitorProfile is the accumulating per-entity summary of analysis
// history. History is bounded at MaxProfileHistory entries, oldest evicted
// on overflow. LastKnownState always reflects the most recent analysis that
// named this competitor.
type CompetitorProfile struct {
	Competitor     string               `json:"competitor"`
	History        []types.ProfileEntry `json:"history"`
	LastKnownState *types.KnownState    `json:"last_known_state,omitempty"`
	LastUpdated    time.Time            `json:"last_updated"`
}

// MaxProfileHistory bounds the number of insight snapshots retained per
// competitor profile.
const MaxProfileHistory = 10

// TrimHistory drops the oldest entries so that at most MaxProfileHistory
// remain. Entries are appended in call order, so the retained suffix is the
// most recent.
func (p *CompetitorProfile) TrimHistory() {
	if len(p.History) > MaxProfileHistory {
		p.History = p.History[len(p.History)-MaxProfileHistory:]
	}
}

// InsightRecord is a single stored insight extracted from an analysis.
type InsightRecord struct {
	ID             string    `json:"id"`
	InsightType    string    `json:"insight_type"`
	Content        string    `json:"content"`
	RelevanceScore float64   `json:"relevance_score"`
	Timestamp      time.Time `json:"timestamp"`
}
