package memory

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pharmascope/pharmascope/pkg/types"
)

// largeContext builds a context well over a small budget.
func largeContext() *types.Context {
	ctx := &types.Context{
		Summary:            "Historical context: 6 previous analyses available.",
		CompetitorProfiles: make(map[string]types.ProfileContext),
	}

	long := strings.Repeat("finding detail ", 50)
	for i := 0; i < 6; i++ {
		ctx.PreviousAnalyses = append(ctx.PreviousAnalyses, types.AnalysisSummary{
			ID:        fmt.Sprintf("a%d", i),
			Query:     fmt.Sprintf("query %d", i),
			Summary:   long,
			Timestamp: time.Now(),
		})
	}
	for _, name := range []string{"Pfizer", "Roche", "Novartis"} {
		ctx.CompetitorProfiles[name] = types.ProfileContext{
			History: []types.ProfileEntry{
				{Timestamp: time.Now(), Insights: []string{"older insight"}},
				{Timestamp: time.Now(), Insights: []string{"latest insight for " + name}},
			},
			LastKnownState: &types.KnownState{Trends: []string{"trend"}},
			LastUpdated:    time.Now(),
		}
	}
	ctx.RelatedInsights = []string{"i1", "i2", "i3", "i4", "i5"}
	return ctx
}

func TestCompactWithinBudgetUnchanged(t *testing.T) {
	c := NewCompactor(true, 100000)

	small := &types.Context{Summary: "short"}
	got := c.Compact(small)
	if got != small {
		t.Error("context within budget should be returned unchanged")
	}
}

func TestCompactDisabledPassthrough(t *testing.T) {
	c := NewCompactor(false, 10)

	ctx := largeContext()
	if got := c.Compact(ctx); got != ctx {
		t.Error("disabled compactor must pass context through unchanged")
	}
}

func TestCompactReducesOversizedContext(t *testing.T) {
	c := NewCompactor(true, 500)
	ctx := largeContext()

	got := c.Compact(ctx)
	if got == ctx {
		t.Fatal("oversized context returned unchanged")
	}

	if len(got.PreviousAnalyses) != 3 {
		t.Errorf("compacted analyses = %d, want 3", len(got.PreviousAnalyses))
	}
	for _, a := range got.PreviousAnalyses {
		if len(a.Summary) > 200 {
			t.Errorf("summary length = %d, want <= 200", len(a.Summary))
		}
	}

	for name, profile := range got.CompetitorProfiles {
		if profile.History != nil {
			t.Errorf("profile %s retained history after compaction", name)
		}
		if profile.LastKnownState == nil {
			t.Errorf("profile %s lost last_known_state", name)
		}
		if !strings.HasPrefix(profile.RecentTrend, "latest insight") {
			t.Errorf("profile %s recent trend = %q", name, profile.RecentTrend)
		}
	}

	if got.Summary != ctx.Summary {
		t.Errorf("summary changed: %q", got.Summary)
	}

	// Key points: the summary plus two truncated analysis summaries.
	if len(got.KeyPoints) != 3 {
		t.Fatalf("key points = %d, want 3", len(got.KeyPoints))
	}
	if got.KeyPoints[0] != ctx.Summary {
		t.Errorf("first key point = %q, want context summary", got.KeyPoints[0])
	}
	for _, kp := range got.KeyPoints[1:] {
		if len(kp) > 100 {
			t.Errorf("key point length = %d, want <= 100", len(kp))
		}
	}

	if len(got.RelatedInsights) != 3 {
		t.Errorf("related insights = %d, want 3", len(got.RelatedInsights))
	}
}

// Once compacted within budget, compacting again must not change anything.
func TestCompactIdempotent(t *testing.T) {
	c := NewCompactor(true, 2000)

	once := c.Compact(largeContext())
	twice := c.Compact(once)
	if twice != once {
		t.Error("second compaction changed an already-compacted context")
	}
}

func TestProfileWithoutHistory(t *testing.T) {
	c := NewCompactor(true, 10)
	ctx := &types.Context{
		Summary: strings.Repeat("x", 100),
		CompetitorProfiles: map[string]types.ProfileContext{
			"Pfizer": {LastUpdated: time.Now()},
			"Roche": {
				History: []types.ProfileEntry{{Timestamp: time.Now()}},
			},
		},
	}

	got := c.Compact(ctx)
	if got.CompetitorProfiles["Pfizer"].RecentTrend != "No trend data" {
		t.Errorf("empty history trend = %q", got.CompetitorProfiles["Pfizer"].RecentTrend)
	}
	if got.CompetitorProfiles["Roche"].RecentTrend != "No specific trend" {
		t.Errorf("empty insights trend = %q", got.CompetitorProfiles["Roche"].RecentTrend)
	}
}

func TestEstimateTokens(t *testing.T) {
	c := NewCompactor(true, 100000)

	ctx := &types.Context{Summary: strings.Repeat("a", 400)}
	tokens := c.EstimateTokens(ctx)
	// Serialized length divided by four; the JSON envelope adds a little.
	if tokens < 100 || tokens > 110 {
		t.Errorf("EstimateTokens = %d, want ~100", tokens)
	}

	if c.ShouldCompact(ctx) {
		t.Error("small context should not need compaction")
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// "é" is two bytes; a cut inside it must back up to the rune start.
	s := "résumé data"
	got := truncate(s, 2)
	if got != "r" {
		t.Errorf("truncate(%q, 2) = %q, want %q", s, got, "r")
	}
	if !utf8.ValidString(truncate(strings.Repeat("日本語", 50), 100)) {
		t.Error("truncate produced invalid UTF-8")
	}
	if truncate("short", 10) != "short" {
		t.Error("truncate modified a string within the limit")
	}
}
