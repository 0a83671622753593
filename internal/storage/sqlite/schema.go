package sqlite

// Schema holds the SQLite DDL for the memory bank. All statements are
// idempotent so the schema can be applied on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id          TEXT PRIMARY KEY,
    query       TEXT NOT NULL,
    competitors TEXT NOT NULL,
    results     TEXT NOT NULL,
    timestamp   TEXT NOT NULL,
    metadata    TEXT
);

CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp DESC);

CREATE TABLE IF NOT EXISTS competitor_profiles (
    competitor   TEXT PRIMARY KEY,
    profile_data TEXT NOT NULL,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS insights (
    id              TEXT PRIMARY KEY,
    insight_type    TEXT NOT NULL,
    content         TEXT NOT NULL,
    relevance_score REAL NOT NULL DEFAULT 0,
    timestamp       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_insights_timestamp ON insights(timestamp DESC);
`
