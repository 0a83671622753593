package memory

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/pharmascope/pharmascope/pkg/types"
)

// Compaction bounds applied when a context exceeds its size budget.
const (
	maxCompactedAnalyses = 3
	maxSummaryLength     = 200
	maxKeyPointLength    = 100
	maxKeyPoints         = 5
	keyPointAnalyses     = 2
	maxCompactedInsights = 3
	charsPerToken        = 4
	noTrendData          = "No trend data"
	noSpecificTrend      = "No specific trend"
)

// Compactor reduces a historical-context bundle to fit a size budget.
// Compaction is lossy and one-directional: each run re-derives context fresh
// from the memory bank, so nothing ever needs to be reversed.
type Compactor struct {
	enabled        bool
	maxContextSize int
}

// NewCompactor creates a compactor with the given serialized-character
// budget. A non-positive budget falls back to 100000.
func NewCompactor(enabled bool, maxContextSize int) *Compactor {
	if maxContextSize <= 0 {
		maxContextSize = 100000
	}
	return &Compactor{enabled: enabled, maxContextSize: maxContextSize}
}

// EstimateTokens approximates the token count of a context as its
// serialized character length divided by four.
func (c *Compactor) EstimateTokens(ctx *types.Context) int {
	return serializedSize(ctx) / charsPerToken
}

// ShouldCompact reports whether the context exceeds the token budget.
func (c *Compactor) ShouldCompact(ctx *types.Context) bool {
	return c.EstimateTokens(ctx) > c.maxContextSize/charsPerToken
}

// Compact returns the input unchanged when compaction is disabled or the
// context is within budget. Otherwise it applies, in order: analysis
// summarization, profile reduction, summary passthrough, and key-point
// extraction. Idempotent once the result is within budget.
func (c *Compactor) Compact(ctx *types.Context) *types.Context {
	if !c.enabled || ctx == nil {
		return ctx
	}

	if serializedSize(ctx) <= c.maxContextSize {
		return ctx
	}

	compacted := &types.Context{
		PreviousAnalyses:   summarizeAnalyses(ctx.PreviousAnalyses),
		CompetitorProfiles: compactProfiles(ctx.CompetitorProfiles),
		Summary:            ctx.Summary,
		KeyPoints:          extractKeyPoints(ctx),
		RelatedInsights:    headStrings(ctx.RelatedInsights, maxCompactedInsights),
	}

	return compacted
}

// summarizeAnalyses keeps the most recent analyses with truncated summaries.
func summarizeAnalyses(analyses []types.AnalysisSummary) []types.AnalysisSummary {
	if len(analyses) == 0 {
		return nil
	}

	recent := analyses
	if len(recent) > maxCompactedAnalyses {
		recent = recent[:maxCompactedAnalyses]
	}

	out := make([]types.AnalysisSummary, 0, len(recent))
	for _, a := range recent {
		a.Summary = truncate(a.Summary, maxSummaryLength)
		out = append(out, a)
	}
	return out
}

// compactProfiles discards raw history and retains only last_updated,
// last_known_state, and a single derived recent-trend string.
func compactProfiles(profiles map[string]types.ProfileContext) map[string]types.ProfileContext {
	if len(profiles) == 0 {
		return nil
	}

	out := make(map[string]types.ProfileContext, len(profiles))
	for competitor, profile := range profiles {
		out[competitor] = types.ProfileContext{
			LastUpdated:    profile.LastUpdated,
			LastKnownState: profile.LastKnownState,
			RecentTrend:    recentTrend(profile),
		}
	}
	return out
}

// recentTrend extracts the first insight of the most recent history entry.
func recentTrend(profile types.ProfileContext) string {
	if profile.RecentTrend != "" {
		return profile.RecentTrend
	}
	if len(profile.History) == 0 {
		return noTrendData
	}

	recent := profile.History[len(profile.History)-1]
	if len(recent.Insights) == 0 {
		return noSpecificTrend
	}
	return recent.Insights[0]
}

// extractKeyPoints derives the summary string followed by up to two
// truncated analysis summaries, capped at five entries total.
func extractKeyPoints(ctx *types.Context) []string {
	var points []string

	if ctx.Summary != "" {
		points = append(points, ctx.Summary)
	}

	analyses := ctx.PreviousAnalyses
	if len(analyses) > keyPointAnalyses {
		analyses = analyses[:keyPointAnalyses]
	}
	for _, a := range analyses {
		if a.Summary != "" {
			points = append(points, truncate(a.Summary, maxKeyPointLength))
		}
	}

	if len(points) > maxKeyPoints {
		points = points[:maxKeyPoints]
	}
	return points
}

func serializedSize(ctx *types.Context) int {
	data, err := json.Marshal(ctx)
	if err != nil {
		return 0
	}
	return len(data)
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func headStrings(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
