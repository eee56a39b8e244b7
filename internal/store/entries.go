package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// StoreResult reports the outcome of a PutEntry call. Created is false
// when an identical entry inside the dedup window already existed, in
// which case ID is the existing entry's ID.
type StoreResult struct {
	ID      memory.EntryID
	Created bool
}

// PutEntry inserts an entry unless an entry with the same content hash
// was stored within the dedup window before e.Timestamp. The duplicate
// check, the insert, and the term indexing happen in one transaction.
func (db *DB) PutEntry(e *memory.Entry, window time.Duration) (StoreResult, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return StoreResult{}, goerr.Wrap(err, "begin put entry", goerr.T(memory.TagStorage))
	}
	defer tx.Rollback()

	cutoff := e.Timestamp.Add(-window).UnixMilli()
	var existing string
	err = tx.QueryRow(`
		SELECT id FROM entries
		WHERE content_hash = ? AND created_at >= ?
		ORDER BY created_at DESC LIMIT 1
	`, e.ContentHash, cutoff).Scan(&existing)
	if err == nil {
		return StoreResult{ID: memory.EntryID(existing), Created: false}, nil
	}
	if err != sql.ErrNoRows {
		return StoreResult{}, goerr.Wrap(err, "check duplicate", goerr.T(memory.TagStorage))
	}

	tags, err := marshalStrings(e.Tags)
	if err != nil {
		return StoreResult{}, err
	}
	dims, err := marshalStrings(e.Dimensions)
	if err != nil {
		return StoreResult{}, err
	}
	conns, err := marshalStrings(e.Connections)
	if err != nil {
		return StoreResult{}, err
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return StoreResult{}, goerr.Wrap(err, "marshal metadata", goerr.T(memory.TagStorage))
	}

	_, err = tx.Exec(`
		INSERT INTO entries (id, content, content_hash, tags, dimensions, connections, metadata,
			importance, confidence, project_context, thinking_mode, source_system, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(e.ID), e.Content, e.ContentHash, tags, dims, conns, string(meta),
		e.Importance, e.Confidence, e.ProjectContext, e.ThinkingMode, e.SourceSystem,
		e.Timestamp.UnixMilli())
	if err != nil {
		return StoreResult{}, goerr.Wrap(err, "insert entry", goerr.T(memory.TagStorage), goerr.V("id", e.ID))
	}

	if err := indexEntryTx(tx, e); err != nil {
		return StoreResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return StoreResult{}, goerr.Wrap(err, "commit put entry", goerr.T(memory.TagStorage))
	}
	return StoreResult{ID: e.ID, Created: true}, nil
}

const entryColumns = `id, content, content_hash, tags, dimensions, connections, metadata,
	importance, confidence, project_context, thinking_mode, source_system, created_at`

// GetEntry returns an entry by ID, or nil if not found.
func (db *DB) GetEntry(id memory.EntryID) (*memory.Entry, error) {
	row := db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, string(id))
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "get entry", goerr.T(memory.TagStorage), goerr.V("id", id))
	}
	return e, nil
}

// GetEntriesByIDs returns entries for the given IDs. Missing IDs are
// silently omitted; order is not guaranteed.
func (db *DB) GetEntriesByIDs(ids []memory.EntryID) ([]memory.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = string(id)
	}

	query := fmt.Sprintf(`SELECT `+entryColumns+` FROM entries WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "get entries by ids", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListRecent returns up to limit entries ordered by created_at DESC.
func (db *DB) ListRecent(limit int) ([]memory.Entry, error) {
	rows, err := db.Query(`SELECT `+entryColumns+` FROM entries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "list recent", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountEntries returns the total number of stored entries.
func (db *DB) CountEntries() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count)
	if err != nil {
		return 0, goerr.Wrap(err, "count entries", goerr.T(memory.TagStorage))
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*memory.Entry, error) {
	var e memory.Entry
	var id, tags, dims, conns, meta string
	var createdAt int64
	err := row.Scan(&id, &e.Content, &e.ContentHash, &tags, &dims, &conns, &meta,
		&e.Importance, &e.Confidence, &e.ProjectContext, &e.ThinkingMode, &e.SourceSystem,
		&createdAt)
	if err != nil {
		return nil, err
	}
	e.ID = memory.EntryID(id)
	e.Timestamp = time.UnixMilli(createdAt).UTC()
	if e.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	if e.Dimensions, err = unmarshalStrings(dims); err != nil {
		return nil, err
	}
	if e.Connections, err = unmarshalStrings(conns); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]memory.Entry, error) {
	var entries []memory.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "scan entry", goerr.T(memory.TagStorage))
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "scan entries", goerr.T(memory.TagStorage))
	}
	return entries, nil
}

func marshalStrings(s []string) (string, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", goerr.Wrap(err, "marshal string list", goerr.T(memory.TagStorage))
	}
	return string(b), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var s []string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return s, nil
}
