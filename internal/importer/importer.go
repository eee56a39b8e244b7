// Package importer migrates records from legacy memory systems into
// the engine. Imports are idempotent: rerunning a migration dedups
// against already-imported content instead of duplicating it.
package importer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// Record is one item pulled from a migration source.
type Record struct {
	Index          int
	Content        string
	Tags           []string
	Dimensions     []string
	Importance     *float64
	ProjectContext string
	SourceSystem   string
	Timestamp      time.Time
	Metadata       memory.Metadata
}

// Source streams records from one legacy system. Next returns io.EOF
// when the source is exhausted. A *RecordError from Next marks one bad
// record; the source stays usable and the next call advances. Any
// other error is fatal for the run.
type Source interface {
	Name() string
	Next() (*Record, error)
	Close() error
}

// RecordError describes one record that could not be imported.
type RecordError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// Result summarizes one migration run.
type Result struct {
	Source  string        `json:"source"`
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Errors  []RecordError `json:"errors,omitempty"`
}

// Destination stores imported records. The engine satisfies it.
type Destination interface {
	StoreRecord(rec *Record) (created bool, err error)
}

// Importer drains a source into a destination.
type Importer struct {
	Dest Destination
	Log  *slog.Logger
}

// Run imports every record from src. Bad records and validation
// rejections are collected in the result; storage failures abort the
// run with the partial result.
func (im *Importer) Run(src Source) (*Result, error) {
	log := im.Log
	if log == nil {
		log = slog.Default()
	}

	res := &Result{Source: src.Name()}
	for {
		rec, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var re *RecordError
			if errors.As(err, &re) {
				log.Warn("skipping bad record", "source", src.Name(), "index", re.Index, "reason", re.Reason)
				res.Errors = append(res.Errors, *re)
				continue
			}
			return res, goerr.Wrap(err, "read migration source", goerr.V("source", src.Name()))
		}

		if rec.SourceSystem == "" {
			rec.SourceSystem = src.Name()
		}

		created, err := im.Dest.StoreRecord(rec)
		if err != nil {
			if goerr.HasTag(err, memory.TagValidation) {
				log.Warn("record rejected", "source", src.Name(), "index", rec.Index, "error", err)
				res.Errors = append(res.Errors, RecordError{Index: rec.Index, Reason: err.Error()})
				continue
			}
			return res, goerr.Wrap(err, "store migrated record",
				goerr.V("source", src.Name()), goerr.V("index", rec.Index))
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	log.Info("migration finished", "source", src.Name(),
		"created", res.Created, "skipped", res.Skipped, "errors", len(res.Errors))
	return res, nil
}

// Open builds a source from a source type and path. Known types are
// "jsonl" and "claude-mem" (a legacy SQLite database).
func Open(sourceType, path string) (Source, error) {
	switch sourceType {
	case "jsonl":
		return NewJSONLSource(sourceType, path)
	case "claude-mem", "sqlite":
		return NewLegacySQLiteSource(sourceType, path)
	default:
		return nil, goerr.New("unknown migration source",
			goerr.T(memory.TagValidation), goerr.V("source", sourceType))
	}
}
