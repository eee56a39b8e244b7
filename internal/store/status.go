package store

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Sink replication states.
const (
	SyncPending   = "pending"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncStatus records the replication state of one entry at one sink.
type SyncStatus struct {
	EntryID     memory.EntryID `json:"entry_id"`
	SinkName    string         `json:"sink_name"`
	Status      string         `json:"status"`
	Detail      string         `json:"detail,omitempty"`
	AttemptedAt int64          `json:"attempted_at"`
}

// MarkSync upserts the replication state for an entry/sink pair and
// stamps the attempt time.
func (db *DB) MarkSync(entryID memory.EntryID, sinkName, status, detail string) error {
	_, err := db.Exec(`
		INSERT INTO sink_status (entry_id, sink_name, status, detail, attempted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entry_id, sink_name) DO UPDATE SET
			status = excluded.status,
			detail = excluded.detail,
			attempted_at = excluded.attempted_at
	`, string(entryID), sinkName, status, detail, time.Now().UnixMilli())
	if err != nil {
		return goerr.Wrap(err, "mark sync", goerr.T(memory.TagStorage),
			goerr.V("entry", entryID), goerr.V("sink", sinkName))
	}
	return nil
}

// SyncStatuses returns the replication state of an entry across all
// configured sinks.
func (db *DB) SyncStatuses(entryID memory.EntryID) ([]SyncStatus, error) {
	rows, err := db.Query(`
		SELECT entry_id, sink_name, status, detail, attempted_at
		FROM sink_status WHERE entry_id = ?
		ORDER BY sink_name
	`, string(entryID))
	if err != nil {
		return nil, goerr.Wrap(err, "query sync statuses", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	var statuses []SyncStatus
	for rows.Next() {
		var s SyncStatus
		var id string
		if err := rows.Scan(&id, &s.SinkName, &s.Status, &s.Detail, &s.AttemptedAt); err != nil {
			return nil, goerr.Wrap(err, "scan sync status", goerr.T(memory.TagStorage))
		}
		s.EntryID = memory.EntryID(id)
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// SyncBacklog returns up to limit entry/sink pairs in the given state,
// oldest attempt first.
func (db *DB) SyncBacklog(status string, limit int) ([]SyncStatus, error) {
	rows, err := db.Query(`
		SELECT entry_id, sink_name, status, detail, attempted_at
		FROM sink_status WHERE status = ?
		ORDER BY attempted_at ASC LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "query sync backlog", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	var statuses []SyncStatus
	for rows.Next() {
		var s SyncStatus
		var id string
		if err := rows.Scan(&id, &s.SinkName, &s.Status, &s.Detail, &s.AttemptedAt); err != nil {
			return nil, goerr.Wrap(err, "scan sync backlog", goerr.T(memory.TagStorage))
		}
		s.EntryID = memory.EntryID(id)
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// CountSyncByStatus returns how many entry/sink pairs sit in each state.
func (db *DB) CountSyncByStatus() (map[string]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM sink_status GROUP BY status`)
	if err != nil {
		return nil, goerr.Wrap(err, "count sync by status", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, goerr.Wrap(err, "scan sync count", goerr.T(memory.TagStorage))
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
