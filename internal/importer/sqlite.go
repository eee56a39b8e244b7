package importer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"

	_ "modernc.org/sqlite"
)

// LegacySQLiteSource reads the claude-mem legacy database: a single
// memories table with JSON or comma-separated tags and epoch
// timestamps. The database is opened read-only.
type LegacySQLiteSource struct {
	name string
	db   *sql.DB
	rows *sql.Rows
	row  int
	err  error
}

func NewLegacySQLiteSource(name, path string) (*LegacySQLiteSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerr.Wrap(err, "legacy database not found",
			goerr.T(memory.TagStorage), goerr.V("path", path))
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, goerr.Wrap(err, "open legacy database", goerr.T(memory.TagStorage))
	}

	rows, err := db.Query(`
		SELECT content, tags, project, importance, created_at
		FROM memories ORDER BY created_at ASC
	`)
	if err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "query legacy memories", goerr.T(memory.TagStorage))
	}

	return &LegacySQLiteSource{name: name, db: db, rows: rows}, nil
}

func (s *LegacySQLiteSource) Name() string { return s.name }

func (s *LegacySQLiteSource) Next() (*Record, error) {
	if s.err != nil {
		return nil, s.err
	}

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			s.err = goerr.Wrap(err, "iterate legacy memories", goerr.T(memory.TagStorage))
			return nil, s.err
		}
		s.err = io.EOF
		return nil, io.EOF
	}
	s.row++

	var content string
	var tags, project sql.NullString
	var importance sql.NullFloat64
	var createdAt sql.NullInt64
	if err := s.rows.Scan(&content, &tags, &project, &importance, &createdAt); err != nil {
		return nil, &RecordError{Index: s.row, Reason: err.Error()}
	}

	rec := &Record{
		Index:          s.row,
		Content:        content,
		Tags:           splitLegacyTags(tags.String),
		ProjectContext: project.String,
	}
	if importance.Valid {
		v := importance.Float64
		rec.Importance = &v
	}
	if createdAt.Valid && createdAt.Int64 > 0 {
		rec.Timestamp = epochToTime(createdAt.Int64)
	}
	return rec, nil
}

func (s *LegacySQLiteSource) Close() error {
	if s.rows != nil {
		s.rows.Close()
	}
	return s.db.Close()
}

// splitLegacyTags accepts a JSON array or a comma-separated list.
func splitLegacyTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags
	}

	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
