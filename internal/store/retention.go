package store

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Cleanup deletes entries created before olderThan whose importance is
// below importanceFloor, along with their index terms and sink status
// rows. The deletes run in one transaction and do not rely on cascade
// pragmas being set on every pooled connection. Returns the number of
// entries removed.
func (db *DB) Cleanup(olderThan time.Time, importanceFloor float64) (int, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return 0, goerr.Wrap(err, "begin cleanup", goerr.T(memory.TagStorage))
	}
	defer tx.Rollback()

	cutoff := olderThan.UnixMilli()
	const victims = `SELECT id FROM entries WHERE created_at < ? AND importance < ?`

	if _, err := tx.Exec(
		`DELETE FROM entry_terms WHERE entry_id IN (`+victims+`)`, cutoff, importanceFloor,
	); err != nil {
		return 0, goerr.Wrap(err, "cleanup terms", goerr.T(memory.TagStorage))
	}
	if _, err := tx.Exec(
		`DELETE FROM sink_status WHERE entry_id IN (`+victims+`)`, cutoff, importanceFloor,
	); err != nil {
		return 0, goerr.Wrap(err, "cleanup sink status", goerr.T(memory.TagStorage))
	}
	result, err := tx.Exec(
		`DELETE FROM entries WHERE created_at < ? AND importance < ?`, cutoff, importanceFloor,
	)
	if err != nil {
		return 0, goerr.Wrap(err, "cleanup entries", goerr.T(memory.TagStorage))
	}

	if err := tx.Commit(); err != nil {
		return 0, goerr.Wrap(err, "commit cleanup", goerr.T(memory.TagStorage))
	}

	n, _ := result.RowsAffected()
	return int(n), nil
}
