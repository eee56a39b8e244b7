package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "entries: memory entries with dedup hash",
		SQL: `
CREATE TABLE entries (
    id              TEXT PRIMARY KEY,
    content         TEXT NOT NULL,
    content_hash    TEXT NOT NULL,
    tags            TEXT NOT NULL DEFAULT '[]',
    dimensions      TEXT NOT NULL DEFAULT '[]',
    connections     TEXT NOT NULL DEFAULT '[]',
    metadata        TEXT NOT NULL DEFAULT '{}',
    importance      REAL NOT NULL DEFAULT 0.5,
    confidence      REAL NOT NULL DEFAULT 1.0,
    project_context TEXT NOT NULL DEFAULT '',
    thinking_mode   TEXT NOT NULL DEFAULT '',
    source_system   TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);

CREATE INDEX idx_entries_hash    ON entries(content_hash, created_at DESC);
CREATE INDEX idx_entries_created ON entries(created_at DESC);
CREATE INDEX idx_entries_project ON entries(project_context);
`,
	},
	{
		Version:     2,
		Description: "entry_terms: inverted index for ranked search",
		SQL: `
CREATE TABLE entry_terms (
    term     TEXT NOT NULL,
    entry_id TEXT NOT NULL,

    PRIMARY KEY (term, entry_id),
    FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
) WITHOUT ROWID;

CREATE INDEX idx_terms_entry ON entry_terms(entry_id);
`,
	},
	{
		Version:     3,
		Description: "sink_status: per-sink replication state",
		SQL: `
CREATE TABLE sink_status (
    entry_id     TEXT NOT NULL,
    sink_name    TEXT NOT NULL,
    status       TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
    detail       TEXT NOT NULL DEFAULT '',
    attempted_at INTEGER NOT NULL,

    PRIMARY KEY (entry_id, sink_name),
    FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
);

CREATE INDEX idx_sink_status ON sink_status(status);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
