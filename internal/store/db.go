package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the brain SQLite database. A single
// in-process mutex serializes the dedup-check-then-insert sequence; a
// file lock next to the database keeps a second process out entirely.
type DB struct {
	*sql.DB
	Path string

	writeMu sync.Mutex
	lock    *flock.Flock
}

// DefaultDBPath returns the default database path: ~/.brain/brain.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "get home dir", goerr.T(memory.TagStorage))
	}
	return filepath.Join(home, ".brain", "brain.db"), nil
}

// Open opens (or creates) the SQLite database at the given path,
// acquires the store lock, configures pragmas, and runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "create db dir", goerr.T(memory.TagStorage))
	}

	lock := flock.New(filepath.Join(dir, "brain.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, goerr.Wrap(err, "acquire store lock", goerr.T(memory.TagStorage))
	}
	if !locked {
		return nil, goerr.New("store is locked by another process",
			goerr.T(memory.TagStorage), goerr.V("lock", lock.Path()))
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		lock.Unlock()
		return nil, goerr.Wrap(err, "open sqlite", goerr.T(memory.TagStorage))
	}

	db := &DB{DB: sqlDB, Path: path, lock: lock}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		lock.Unlock()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		lock.Unlock()
		return nil, goerr.Wrap(err, "migrate", goerr.T(memory.TagStorage))
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing. The pool
// is pinned to one connection so every statement sees the same data.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite memory", goerr.T(memory.TagStorage))
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, Path: ":memory:"}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, goerr.Wrap(err, "migrate", goerr.T(memory.TagStorage))
	}
	return db, nil
}

// Close releases the store lock and closes the connection pool.
func (db *DB) Close() error {
	if db.lock != nil {
		db.lock.Unlock()
	}
	return db.DB.Close()
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return goerr.Wrap(err, "configure pragma", goerr.T(memory.TagStorage), goerr.V("pragma", p))
		}
	}
	return nil
}
