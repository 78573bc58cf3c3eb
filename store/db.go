// Package store persists paired-device identities. One record exists per
// account; records are created on successful pairing and removed on logout.
package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite connection holding the device table.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}
	return &DB{db}, nil
}
