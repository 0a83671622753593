package postgres

// Schema holds the PostgreSQL DDL for the memory bank. All statements use
// IF NOT EXISTS so the schema can be applied idempotently on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
    id          TEXT PRIMARY KEY,
    query       TEXT NOT NULL,
    competitors JSONB NOT NULL,
    results     JSONB NOT NULL,
    timestamp   TIMESTAMPTZ NOT NULL,
    metadata    JSONB
);

CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp DESC);

CREATE TABLE IF NOT EXISTS competitor_profiles (
    competitor   TEXT PRIMARY KEY,
    profile_data JSONB NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS insights (
    id              TEXT PRIMARY KEY,
    insight_type    TEXT NOT NULL,
    content         TEXT NOT NULL,
    relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    timestamp       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_insights_timestamp ON insights(timestamp DESC);
`

// MigrationPgvector adds the embedding column used for insight similarity
// search. Applied only when the pgvector extension is available.
const MigrationPgvector = `
ALTER TABLE insights ADD COLUMN IF NOT EXISTS content_vec vector(768);

CREATE INDEX IF NOT EXISTS idx_insights_content_vec
    ON insights USING ivfflat (content_vec vector_cosine_ops);
`
