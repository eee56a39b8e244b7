package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// indexEntryTx writes the entry's index terms inside the caller's
// transaction so the entry and its terms commit together.
func indexEntryTx(tx *sql.Tx, e *memory.Entry) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO entry_terms (term, entry_id) VALUES (?, ?)`)
	if err != nil {
		return goerr.Wrap(err, "prepare index insert", goerr.T(memory.TagStorage))
	}
	defer stmt.Close()

	for _, term := range memory.IndexTokens(e) {
		if _, err := stmt.Exec(term, string(e.ID)); err != nil {
			return goerr.Wrap(err, "index term", goerr.T(memory.TagStorage), goerr.V("term", term))
		}
	}
	return nil
}

// CandidatesByTerms returns the IDs of entries indexed under any of
// the given terms.
func (db *DB) CandidatesByTerms(terms []string) ([]memory.EntryID, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		placeholders[i] = "?"
		args[i] = t
	}

	query := fmt.Sprintf(`SELECT DISTINCT entry_id FROM entry_terms WHERE term IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "query candidates", goerr.T(memory.TagStorage))
	}
	defer rows.Close()

	var ids []memory.EntryID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "scan candidate", goerr.T(memory.TagStorage))
		}
		ids = append(ids, memory.EntryID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "scan candidates", goerr.T(memory.TagStorage))
	}
	return ids, nil
}

// TermCount returns the number of rows in the inverted index.
func (db *DB) TermCount() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM entry_terms`).Scan(&count)
	if err != nil {
		return 0, goerr.Wrap(err, "count terms", goerr.T(memory.TagStorage))
	}
	return count, nil
}
