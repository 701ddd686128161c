package store

const schemaVersion = 1

// schemaV1 holds the fixed tables. Tables written by Replace are created on demand.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	url         TEXT NOT NULL,
	path        TEXT,
	repaired    INTEGER NOT NULL DEFAULT 0,
	records     INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS universities (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	state_province TEXT,
	alpha_two_code TEXT,
	country        TEXT
);

CREATE TABLE IF NOT EXISTS web_pages (
	web_page_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	university_id INTEGER NOT NULL REFERENCES universities(id) ON DELETE CASCADE,
	web_page      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS domains (
	domain_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	university_id INTEGER NOT NULL REFERENCES universities(id) ON DELETE CASCADE,
	domain_name   TEXT NOT NULL
);
`
