package importer

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func writeLegacyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude-mem.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE memories (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			tags       TEXT,
			project    TEXT,
			importance REAL,
			created_at INTEGER
		)
	`)
	if err != nil {
		t.Fatalf("create memories table: %v", err)
	}

	inserts := []struct {
		id, content, tags, project string
		importance                 any
		createdAt                  int64
	}{
		{"m1", "Standup notes from the old system", `["standup","team"]`, "legacy-project", 0.6, 1720000000},
		{"m2", "Comma tagged reminder", "errands, shopping", "", 0.4, 1720086400000},
		{"m3", "Bare record with nulls", "", "", nil, 0},
	}
	for _, in := range inserts {
		_, err := db.Exec(
			`INSERT INTO memories (id, content, tags, project, importance, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			in.id, in.content, in.tags, in.project, in.importance, in.createdAt,
		)
		if err != nil {
			t.Fatalf("insert %s: %v", in.id, err)
		}
	}
	return path
}

func TestLegacySQLiteSource(t *testing.T) {
	path := writeLegacyDB(t)

	src, err := NewLegacySQLiteSource("claude-mem", path)
	if err != nil {
		t.Fatalf("NewLegacySQLiteSource: %v", err)
	}
	defer src.Close()

	dest := newFakeDest()
	im := &Importer{Dest: dest}
	res, err := im.Run(src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Created != 3 {
		t.Fatalf("created = %d, want 3", res.Created)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v, want none", res.Errors)
	}

	// Rows stream oldest first, so the created_at=0 record leads.
	bare := dest.stored[0]
	if bare.Importance != nil {
		t.Errorf("importance = %v, want nil", bare.Importance)
	}
	if !bare.Timestamp.IsZero() {
		t.Errorf("timestamp = %v, want zero", bare.Timestamp)
	}
	if len(bare.Tags) != 0 {
		t.Errorf("tags = %v, want none", bare.Tags)
	}

	standup := dest.stored[1]
	if len(standup.Tags) != 2 || standup.Tags[0] != "standup" {
		t.Errorf("json tags = %v", standup.Tags)
	}
	if standup.ProjectContext != "legacy-project" {
		t.Errorf("project = %q", standup.ProjectContext)
	}
	if standup.Importance == nil || *standup.Importance != 0.6 {
		t.Errorf("importance = %v, want 0.6", standup.Importance)
	}
	if standup.Timestamp.Year() != 2024 {
		t.Errorf("epoch seconds timestamp = %v", standup.Timestamp)
	}
	if standup.SourceSystem != "claude-mem" {
		t.Errorf("source system = %q", standup.SourceSystem)
	}

	reminder := dest.stored[2]
	if len(reminder.Tags) != 2 || reminder.Tags[0] != "errands" || reminder.Tags[1] != "shopping" {
		t.Errorf("csv tags = %v", reminder.Tags)
	}
	if reminder.Timestamp.Year() != 2024 {
		t.Errorf("epoch ms timestamp = %v", reminder.Timestamp)
	}
}

func TestLegacySQLiteSourceMissingFile(t *testing.T) {
	_, err := NewLegacySQLiteSource("claude-mem", filepath.Join(t.TempDir(), "absent.db"))
	if err == nil {
		t.Fatal("expected error for missing database")
	}
}
