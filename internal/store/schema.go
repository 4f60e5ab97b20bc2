package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the verification-run schema.
const Schema = `
-- Verification run audit records
CREATE TABLE IF NOT EXISTS verification_runs (
    id TEXT PRIMARY KEY,
    document TEXT NOT NULL,

    -- Verdict
    overall_compliant BOOLEAN NOT NULL,
    compliance_reason TEXT NOT NULL,
    parameters_checked INTEGER NOT NULL,
    compliant_count INTEGER NOT NULL,

    -- Classification path
    using_model BOOLEAN NOT NULL,
    model_available BOOLEAN NOT NULL,

    -- Timing
    duration_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for the recent-runs and retention queries
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON verification_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_document ON verification_runs(document);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
