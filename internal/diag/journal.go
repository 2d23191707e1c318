// Package diag provides an optional SQLite-backed event journal for a
// Session: every CONNECT, DISCONNECT, SEEK, SAVE, and mode switch is
// appended with a wall-clock timestamp and the editor row in effect at the
// time, so a crash mid-demo-show can be diagnosed after the fact. Nothing
// in the core requires this; a Session with no Journal attached behaves
// identically, just without a trail.
package diag

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Journal appends session lifecycle events to a SQLite file.
type Journal struct {
	db *sql.DB
}

// Open creates (or appends to) a journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("diag: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_unix_ms INTEGER NOT NULL,
	kind TEXT NOT NULL,
	editor_row INTEGER NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("diag: create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one event row. Failures are not surfaced as session
// errors since the journal is diagnostics-only; callers may inspect the
// returned error for their own logging but an update() must never fail
// because the journal couldn't write.
func (j *Journal) Record(kind string, editorRow int64, detail string) error {
	if j == nil {
		return nil
	}
	_, err := j.db.Exec(
		`INSERT INTO events (ts_unix_ms, kind, editor_row, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UnixMilli(), kind, editorRow, detail,
	)
	if err != nil {
		return fmt.Errorf("diag: record %s: %w", kind, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
