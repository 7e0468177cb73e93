package store

// SQL schema constants for the Traduko history tables.

const schemaEvents = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts TEXT NOT NULL,
    kind TEXT NOT NULL,
    instance TEXT NOT NULL DEFAULT '',
    job TEXT NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
CREATE INDEX IF NOT EXISTS idx_events_job ON events(job);
`

const schemaJobs = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    finished_at TEXT NOT NULL,
    outcome TEXT NOT NULL,
    instance TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT '',
    source_lang TEXT NOT NULL DEFAULT '',
    target_lang TEXT NOT NULL DEFAULT '',
    attempts INTEGER NOT NULL DEFAULT 0,
    tokens_in INTEGER NOT NULL DEFAULT 0,
    tokens_out INTEGER NOT NULL DEFAULT 0,
    cost_usd REAL NOT NULL DEFAULT 0.0,
    latency_ms INTEGER NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_finished ON jobs(finished_at);
CREATE INDEX IF NOT EXISTS idx_jobs_outcome ON jobs(outcome);
`

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// allSchemas is the ordered list of schema DDL statements that form the
// initial (version-1) database layout.
var allSchemas = []string{
	schemaEvents,
	schemaJobs,
	schemaMigrations,
}
