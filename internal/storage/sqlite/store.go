// Package sqlite provides the SQLite implementation of storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pharmascope/pharmascope/internal/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at the given DSN, configures WAL mode,
// and applies the schema. Use ":memory:" for an in-memory store in tests.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// UpsertAnalysis creates or replaces an analysis record by ID.
func (s *Store) UpsertAnalysis(ctx context.Context, rec *storage.AnalysisRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: analysis record with ID is required", storage.ErrInvalidInput)
	}

	competitorsJSON, err := json.Marshal(rec.Competitors)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal competitors: %w", err)
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal results: %w", err)
	}

	var metadataJSON []byte
	if rec.Metadata != nil {
		metadataJSON, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal metadata: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, query, competitors, results, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query       = excluded.query,
			competitors = excluded.competitors,
			results     = excluded.results,
			timestamp   = excluded.timestamp,
			metadata    = excluded.metadata
	`, rec.ID, rec.Query, string(competitorsJSON), string(resultsJSON),
		rec.Timestamp.UTC().Format(time.RFC3339Nano), nullableString(metadataJSON))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves an analysis record by ID.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*storage.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, query, competitors, results, timestamp, metadata
		FROM analyses WHERE id = ?
	`, id)

	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get analysis: %w", err)
	}
	return rec, nil
}

// RecentAnalyses returns up to limit most-recent records whose stored
// competitor set overlaps the requested set. The SQL LIKE clauses are a
// coarse prefilter; exact set overlap is verified after decoding.
func (s *Store) RecentAnalyses(ctx context.Context, competitors []string, limit int) ([]*storage.AnalysisRecord, error) {
	if len(competitors) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	query := "SELECT id, query, competitors, results, timestamp, metadata FROM analyses WHERE "
	args := make([]any, 0, len(competitors)+1)
	for i, c := range competitors {
		if i > 0 {
			query += " OR "
		}
		query += "competitors LIKE ?"
		args = append(args, "%"+c+"%")
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query analyses: %w", err)
	}
	defer rows.Close()

	var records []*storage.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan analysis: %w", err)
		}
		if overlaps(rec.Competitors, competitors) {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate analyses: %w", err)
	}

	return records, nil
}

// GetProfile retrieves a competitor profile by name.
func (s *Store) GetProfile(ctx context.Context, competitor string) (*storage.CompetitorProfile, error) {
	var profileJSON, lastUpdated string
	err := s.db.QueryRowContext(ctx, `
		SELECT profile_data, last_updated FROM competitor_profiles WHERE competitor = ?
	`, competitor).Scan(&profileJSON, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get profile: %w", err)
	}

	var profile storage.CompetitorProfile
	if err := json.Unmarshal([]byte(profileJSON), &profile); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal profile: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, lastUpdated); err == nil {
		profile.LastUpdated = ts
	}

	return &profile, nil
}

// UpsertProfile creates or replaces a competitor profile.
func (s *Store) UpsertProfile(ctx context.Context, profile *storage.CompetitorProfile) error {
	if profile == nil || profile.Competitor == "" {
		return fmt.Errorf("%w: profile with competitor name is required", storage.ErrInvalidInput)
	}

	if profile.LastUpdated.IsZero() {
		profile.LastUpdated = time.Now()
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO competitor_profiles (competitor, profile_data, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(competitor) DO UPDATE SET
			profile_data = excluded.profile_data,
			last_updated = excluded.last_updated
	`, profile.Competitor, string(profileJSON), profile.LastUpdated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert profile: %w", err)
	}

	return nil
}

// UpsertInsight creates or replaces a single insight record by ID.
func (s *Store) UpsertInsight(ctx context.Context, insight *storage.InsightRecord) error {
	if insight == nil || insight.ID == "" {
		return fmt.Errorf("%w: insight record with ID is required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, insight_type, content, relevance_score, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			insight_type    = excluded.insight_type,
			content         = excluded.content,
			relevance_score = excluded.relevance_score,
			timestamp       = excluded.timestamp
	`, insight.ID, insight.InsightType, insight.Content, insight.RelevanceScore,
		insight.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert insight: %w", err)
	}

	return nil
}

// CountAnalyses returns the number of stored analysis records.
func (s *Store) CountAnalyses(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count analyses: %w", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(sc scanner) (*storage.AnalysisRecord, error) {
	var (
		rec                                 storage.AnalysisRecord
		competitorsJSON, resultsJSON, tsStr string
		metadataJSON                        sql.NullString
	)

	if err := sc.Scan(&rec.ID, &rec.Query, &competitorsJSON, &resultsJSON, &tsStr, &metadataJSON); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(competitorsJSON), &rec.Competitors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal competitors: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &rec.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
		rec.Timestamp = ts
	}

	return &rec, nil
}

// overlaps reports whether the two competitor sets share at least one name.
func overlaps(stored, requested []string) bool {
	for _, s := range stored {
		for _, r := range requested {
			if s == r {
				return true
			}
		}
	}
	return false
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
