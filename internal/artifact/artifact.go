// Package artifact reads and writes the SQLite input artifact: the
// stratified rate tables and reference population a run consumes.
package artifact

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Artifact is an open handle to one artifact database.
// Uses SQLite with WAL mode so a running simulation's reads never block a
// preparation tool appending rows to another table.
type Artifact struct {
	db *sql.DB
}

// Open creates or opens the artifact at the given path, applying pragmas
// and the schema. Idempotent.
func Open(path string) (*Artifact, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to artifact: %w", err)
	}

	// SQLite allows a single writer; keep one connection to avoid
	// SQLITE_BUSY during fixture preparation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Artifact{db: db}, nil
}

// Close closes the database connection.
func (a *Artifact) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Artifact methods when available.
func (a *Artifact) DB() *sql.DB {
	return a.db
}

// Query executes a query against the artifact and returns the rows.
// Callers are responsible for closing the returned rows.
func (a *Artifact) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return a.db.QueryContext(ctx, query, args...)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
