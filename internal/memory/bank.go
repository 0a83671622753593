// Package memory implements the long-term memory bank and the context
// compactor. The bank stores completed analyses and maintains an evolving
// profile per competitor; the compactor bounds the size of the historical
// context handed to the model.
//
// The bank never fails the orchestrator: every storage error is logged and
// degraded to an empty or neutral value, because historical context is an
// optimization, not a correctness requirement, for the pipeline.
package memory

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pharmascope/pharmascope/internal/storage"
	"github.com/pharmascope/pharmascope/pkg/types"
)

// DefaultRetrievalLimit caps how many past analyses a retrieval returns when
// the caller does not specify a limit.
const DefaultRetrievalLimit = 5

// Embedder generates vectors for insight similarity matching. It is an
// optional capability; the bank works without one.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Bank is the long-term memory store for competitive intelligence.
type Bank struct {
	store    storage.Store
	enabled  bool
	embedder Embedder
}

// NewBank creates a memory bank over the given store. A nil store or
// enabled=false yields a bank whose operations return empty results.
func NewBank(store storage.Store, enabled bool) *Bank {
	return &Bank{store: store, enabled: enabled && store != nil}
}

// SetEmbedder attaches an optional embedding generator. When both the
// embedder and the store's similarity capability are present, stored insights
// gain embeddings and retrieval adds embedding-matched insight snippets.
func (b *Bank) SetEmbedder(e Embedder) {
	b.embedder = e
}

// Enabled reports whether the bank persists and retrieves anything.
func (b *Bank) Enabled() bool {
	return b.enabled
}

// StoreAnalysis upserts a completed analysis and updates each named
// competitor's profile. The analysis id is a deterministic digest of
// (query, timestamp), so re-storing the same pair overwrites.
//
// Returns an empty id and logs on any storage failure.
func (b *Bank) StoreAnalysis(ctx context.Context, query string, competitors []string, results *types.AnalysisResult, timestamp time.Time) string {
	if !b.enabled {
		return ""
	}

	id := AnalysisID(query, timestamp)

	rec := &storage.AnalysisRecord{
		ID:          id,
		Query:       query,
		Competitors: competitors,
		Results:     results,
		Timestamp:   timestamp,
		Metadata:    map[string]string{"stored_at": time.Now().UTC().Format(time.RFC3339)},
	}

	if err := b.store.UpsertAnalysis(ctx, rec); err != nil {
		log.Printf("memory: failed to store analysis: %v", err)
		return ""
	}

	for _, competitor := range competitors {
		if err := b.updateProfile(ctx, competitor, results); err != nil {
			log.Printf("memory: failed to update profile for %s: %v", competitor, err)
		}
	}

	b.storeInsights(ctx, id, results)

	return id
}

// RetrieveRelevantMemories assembles the historical context for a query:
// up to limit most-recent analyses overlapping the competitor set, full
// profiles for the requested competitors, and a short synopsis. A limit of
// zero or less uses DefaultRetrievalLimit.
//
// Returns an empty context, never an error, when disabled or on any
// storage failure.
func (b *Bank) RetrieveRelevantMemories(ctx context.Context, query string, competitors []string, limit int) *types.Context {
	if !b.enabled {
		return &types.Context{}
	}
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}

	records, err := b.store.RecentAnalyses(ctx, competitors, limit)
	if err != nil {
		log.Printf("memory: failed to retrieve memories: %v", err)
		return &types.Context{}
	}

	summaries := make([]types.AnalysisSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, types.AnalysisSummary{
			ID:        rec.ID,
			Query:     rec.Query,
			Summary:   summarizeResults(rec.Results),
			Timestamp: rec.Timestamp,
		})
	}

	profiles := b.GetCompetitorProfiles(ctx, competitors)

	result := &types.Context{
		PreviousAnalyses:   summaries,
		CompetitorProfiles: profiles,
		Summary:            contextSummary(summaries, profiles),
		RelatedInsights:    b.similarInsights(ctx, query),
	}

	log.Printf("memory: retrieved %d relevant memories", len(summaries))
	return result
}

// GetCompetitorProfiles batch-loads profiles, omitting competitors that have
// none stored. Storage failures are logged and the competitor omitted.
func (b *Bank) GetCompetitorProfiles(ctx context.Context, competitors []string) map[string]types.ProfileContext {
	if !b.enabled {
		return map[string]types.ProfileContext{}
	}

	profiles := make(map[string]types.ProfileContext)
	for _, competitor := range competitors {
		profile, err := b.store.GetProfile(ctx, competitor)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Printf("memory: failed to load profile for %s: %v", competitor, err)
			continue
		}
		profiles[competitor] = types.ProfileContext{
			History:        profile.History,
			LastKnownState: profile.LastKnownState,
			LastUpdated:    profile.LastUpdated,
		}
	}
	return profiles
}

// EntryCount returns the number of stored analyses, for the metrics gauge.
// Best effort: failures return zero.
func (b *Bank) EntryCount(ctx context.Context) int {
	if !b.enabled {
		return 0
	}
	n, err := b.store.CountAnalyses(ctx)
	if err != nil {
		log.Printf("memory: failed to count analyses: %v", err)
		return 0
	}
	return n
}

// Close releases the underlying store.
func (b *Bank) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// updateProfile appends an insight snapshot to the competitor's profile,
// trims history to the bound, and overwrites last_known_state.
func (b *Bank) updateProfile(ctx context.Context, competitor string, results *types.AnalysisResult) error {
	profile, err := b.store.GetProfile(ctx, competitor)
	if errors.Is(err, storage.ErrNotFound) {
		profile = &storage.CompetitorProfile{Competitor: competitor}
	} else if err != nil {
		return err
	}

	now := time.Now()
	profile.History = append(profile.History, types.ProfileEntry{
		Timestamp: now,
		Insights:  results.KeyInsights,
	})
	profile.TrimHistory()
	profile.LastKnownState = &types.KnownState{
		Trends:   results.Trends,
		Position: results.CompetitivePositioning,
	}
	profile.LastUpdated = now

	return b.store.UpsertProfile(ctx, profile)
}

// storeInsights writes each key insight as an individual insight record with
// a rank-decayed relevance score, attaching embeddings when the backend and
// an embedder are available. Entirely best effort.
func (b *Bank) storeInsights(ctx context.Context, analysisID string, results *types.AnalysisResult) {
	if results == nil {
		return
	}

	searcher, _ := b.store.(storage.InsightSearcher)

	for i, insight := range results.KeyInsights {
		rec := &storage.InsightRecord{
			ID:             insightID(analysisID, i),
			InsightType:    "key_insight",
			Content:        insight,
			RelevanceScore: rankRelevance(i),
			Timestamp:      time.Now(),
		}
		if err := b.store.UpsertInsight(ctx, rec); err != nil {
			log.Printf("memory: failed to store insight: %v", err)
			continue
		}

		if searcher == nil || b.embedder == nil {
			continue
		}
		embedding, err := b.embedder.Embed(ctx, insight)
		if err != nil {
			log.Printf("memory: failed to embed insight: %v", err)
			continue
		}
		if err := searcher.StoreInsightEmbedding(ctx, rec.ID, embedding); err != nil {
			log.Printf("memory: failed to store insight embedding: %v", err)
		}
	}
}

// similarInsights returns embedding-matched insight snippets for the query,
// or nil when the capability is unavailable.
func (b *Bank) similarInsights(ctx context.Context, query string) []string {
	searcher, ok := b.store.(storage.InsightSearcher)
	if !ok || b.embedder == nil {
		return nil
	}

	embedding, err := b.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("memory: failed to embed query: %v", err)
		return nil
	}

	insights, err := searcher.SimilarInsights(ctx, embedding, 3)
	if err != nil {
		log.Printf("memory: failed to search similar insights: %v", err)
		return nil
	}
	return insights
}

// AnalysisID derives the deterministic analysis id from (query, timestamp).
func AnalysisID(query string, timestamp time.Time) string {
	sum := sha256.Sum256([]byte(query + timestamp.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", sum)
}

func insightID(analysisID string, rank int) string {
	return fmt.Sprintf("%s:%d", analysisID, rank)
}

// rankRelevance decays relevance by insight rank, floored at 0.1.
func rankRelevance(rank int) float64 {
	score := 1.0 - 0.1*float64(rank)
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// summarizeResults builds a short digest from the first three key insights.
func summarizeResults(results *types.AnalysisResult) string {
	if results == nil || len(results.KeyInsights) == 0 {
		return "No specific insights"
	}
	insights := results.KeyInsights
	if len(insights) > 3 {
		insights = insights[:3]
	}
	return strings.Join(insights, "; ")
}

// contextSummary builds the human-readable synopsis of retrieved history.
func contextSummary(memories []types.AnalysisSummary, profiles map[string]types.ProfileContext) string {
	if len(memories) == 0 && len(profiles) == 0 {
		return "No historical context available"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Historical context: %d previous analyses available. ", len(memories))

	if len(profiles) > 0 {
		names := make([]string, 0, len(profiles))
		for name := range profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&sb, "Profiles available for: %s. ", strings.Join(names, ", "))
	}

	if len(memories) > 0 {
		fmt.Fprintf(&sb, "Most recent analysis: %s (%s)",
			memories[0].Query, memories[0].Timestamp.Format(time.RFC3339))
	}

	return strings.TrimSpace(sb.String())
}
