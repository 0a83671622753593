package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pharmascope/pharmascope/internal/storage"
	"github.com/pharmascope/pharmascope/internal/storage/sqlite"
	"github.com/pharmascope/pharmascope/pkg/types"
)

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	bank := NewBank(store, true)
	t.Cleanup(func() { _ = bank.Close() })
	return bank
}

func testResults() *types.AnalysisResult {
	return &types.AnalysisResult{
		KeyInsights: []string{"insight one", "insight two", "insight three", "insight four"},
		CompetitivePositioning: map[string]string{
			"Pfizer": "leader",
			"Roche":  "challenger",
		},
		Trends: []string{"mRNA investment up"},
	}
}

func TestStoreAnalysisAndRetrieve(t *testing.T) {
	bank := newTestBank(t)
	ctx := context.Background()

	id := bank.StoreAnalysis(ctx, "oncology landscape", []string{"Pfizer", "Roche"}, testResults(), time.Now())
	if id == "" {
		t.Fatal("StoreAnalysis returned empty id")
	}

	retrieved := bank.RetrieveRelevantMemories(ctx, "oncology update", []string{"Pfizer"}, 5)
	if len(retrieved.PreviousAnalyses) != 1 {
		t.Fatalf("PreviousAnalyses = %d, want 1", len(retrieved.PreviousAnalyses))
	}

	summary := retrieved.PreviousAnalyses[0]
	if summary.ID != id {
		t.Errorf("summary id = %q, want %q", summary.ID, id)
	}
	// Summary is the first three insights joined.
	if summary.Summary != "insight one; insight two; insight three" {
		t.Errorf("summary = %q", summary.Summary)
	}

	profile, ok := retrieved.CompetitorProfiles["Pfizer"]
	if !ok {
		t.Fatal("profile for Pfizer missing from context")
	}
	if profile.LastKnownState == nil || profile.LastKnownState.Position["Pfizer"] != "leader" {
		t.Errorf("LastKnownState = %+v", profile.LastKnownState)
	}

	if !strings.Contains(retrieved.Summary, "1 previous analyses available") {
		t.Errorf("context summary = %q", retrieved.Summary)
	}
	if !strings.Contains(retrieved.Summary, "Pfizer") {
		t.Errorf("context summary missing profile names: %q", retrieved.Summary)
	}
}

func TestRetrieveDisjointCompetitors(t *testing.T) {
	bank := newTestBank(t)
	ctx := context.Background()

	bank.StoreAnalysis(ctx, "oncology landscape", []string{"Pfizer"}, testResults(), time.Now())

	retrieved := bank.RetrieveRelevantMemories(ctx, "query", []string{"AstraZeneca"}, 5)
	if len(retrieved.PreviousAnalyses) != 0 {
		t.Errorf("disjoint competitors retrieved %d analyses, want 0", len(retrieved.PreviousAnalyses))
	}
}

func TestDisabledBankIsInert(t *testing.T) {
	bank := NewBank(nil, true)
	ctx := context.Background()

	if bank.Enabled() {
		t.Error("bank with nil store reports enabled")
	}
	if id := bank.StoreAnalysis(ctx, "q", []string{"Pfizer"}, testResults(), time.Now()); id != "" {
		t.Errorf("disabled StoreAnalysis returned id %q", id)
	}

	retrieved := bank.RetrieveRelevantMemories(ctx, "q", []string{"Pfizer"}, 5)
	if !retrieved.IsEmpty() {
		t.Error("disabled bank returned non-empty context")
	}
	if n := bank.EntryCount(ctx); n != 0 {
		t.Errorf("disabled EntryCount = %d, want 0", n)
	}
}

// Two stores for the same competitor in quick succession must both land in
// the profile history.
func TestBackToBackProfileUpdates(t *testing.T) {
	bank := newTestBank(t)
	ctx := context.Background()

	first := testResults()
	first.KeyInsights = []string{"first run"}
	second := testResults()
	second.KeyInsights = []string{"second run"}

	bank.StoreAnalysis(ctx, "query one", []string{"Pfizer"}, first, time.Now())
	bank.StoreAnalysis(ctx, "query two", []string{"Pfizer"}, second, time.Now().Add(time.Millisecond))

	profiles := bank.GetCompetitorProfiles(ctx, []string{"Pfizer"})
	profile, ok := profiles["Pfizer"]
	if !ok {
		t.Fatal("profile missing")
	}
	if len(profile.History) != 2 {
		t.Fatalf("history length = %d, want 2 (dropped write)", len(profile.History))
	}
	if profile.History[0].Insights[0] != "first run" || profile.History[1].Insights[0] != "second run" {
		t.Errorf("history out of order: %+v", profile.History)
	}
}

func TestProfileHistoryBoundedAcrossStores(t *testing.T) {
	bank := newTestBank(t)
	ctx := context.Background()

	for i := 0; i < storage.MaxProfileHistory+3; i++ {
		bank.StoreAnalysis(ctx, "query", []string{"Roche"}, testResults(), time.Now().Add(time.Duration(i)*time.Millisecond))
	}

	profiles := bank.GetCompetitorProfiles(ctx, []string{"Roche"})
	profile := profiles["Roche"]
	if len(profile.History) != storage.MaxProfileHistory {
		t.Errorf("history length = %d, want %d", len(profile.History), storage.MaxProfileHistory)
	}
}

func TestAnalysisIDDeterministic(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := AnalysisID("query", ts)
	b := AnalysisID("query", ts)
	if a != b {
		t.Errorf("same inputs produced different ids: %s vs %s", a, b)
	}

	c := AnalysisID("query", ts.Add(time.Nanosecond))
	if a == c {
		t.Error("different timestamps produced the same id")
	}
	if d := AnalysisID("other query", ts); a == d {
		t.Error("different queries produced the same id")
	}
}

func TestEntryCount(t *testing.T) {
	bank := newTestBank(t)
	ctx := context.Background()

	if n := bank.EntryCount(ctx); n != 0 {
		t.Fatalf("EntryCount on empty bank = %d", n)
	}

	bank.StoreAnalysis(ctx, "q1", []string{"Pfizer"}, testResults(), time.Now())
	bank.StoreAnalysis(ctx, "q2", []string{"Pfizer"}, testResults(), time.Now().Add(time.Second))

	if n := bank.EntryCount(ctx); n != 2 {
		t.Errorf("EntryCount = %d, want 2", n)
	}
}
