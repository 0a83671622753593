// Package storage defines the persistence interfaces for the memory bank.
//
// The store is modeled as a single small interface with multiple concrete
// backends (SQLite, PostgreSQL). Alternative backends are separate
// implementations of the same interface, not conditional branches inside one.
package storage

import "context"

// Store is the persistent backing for analyses, competitor profiles, and
// insights. Implementations must provide read-your-writes consistency within
// a single process; concurrent writers to the same profile must not silently
// drop updates (last-write-wins on the full profile blob is acceptable).
type Store interface {
	// UpsertAnalysis creates or replaces an analysis record by ID.
	UpsertAnalysis(ctx context.Context, rec *AnalysisRecord) error

	// GetAnalysis retrieves an analysis record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error)

	// RecentAnalyses returns up to limit most-recent analysis records whose
	// stored competitor set overlaps the given competitor set. An empty
	// competitor set matches nothing.
	RecentAnalyses(ctx context.Context, competitors []string, limit int) ([]*AnalysisRecord, error)

	// GetProfile retrieves a competitor profile by name.
	// Returns ErrNotFound if no profile has been stored for the competitor.
	GetProfile(ctx context.Context, competitor string) (*CompetitorProfile, error)

	// UpsertProfile creates or replaces a competitor profile.
	UpsertProfile(ctx context.Context, profile *CompetitorProfile) error

	// UpsertInsight creates or replaces a single insight record by ID.
	UpsertInsight(ctx context.Context, insight *InsightRecord) error

	// CountAnalyses returns the number of stored analysis records.
	CountAnalyses(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// InsightSearcher is an optional capability offered by backends that can
// rank stored insights by vector similarity. Callers probe for it with a
// type assertion and silently skip similarity retrieval when absent.
type InsightSearcher interface {
	// StoreInsightEmbedding attaches an embedding vector to a stored insight.
	StoreInsightEmbedding(ctx context.Context, insightID string, embedding []float32) error

	// SimilarInsights returns the contents of up to limit stored insights
	// closest to the given embedding, best match first.
	SimilarInsights(ctx context.Context, embedding []float32, limit int) ([]string, error)
}
