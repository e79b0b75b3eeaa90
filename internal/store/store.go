// Package store persists policy templates and published policies in
// sqlite. The single-active-policy-per-course invariant lives here, in
// the schema, so concurrent publishers cannot race past it.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound means the requested template or policy row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a publish lost the race: another active policy
	// already exists for the course.
	ErrConflict = errors.New("an active policy already exists for this course")

	// ErrInconsistentState means the store holds more than one active
	// policy for a course. This is a server fault, never resolved by
	// silently picking a row.
	ErrInconsistentState = errors.New("multiple active policies for one course")
)

// Store is the durable record store for templates and policies.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and applies the
// schema. The schema is idempotent, so Open doubles as migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialized writers with a wait instead of immediate SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a sqlite unique-constraint
// failure, which is how the one_active_policy_per_course index rejects
// a losing publisher.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
