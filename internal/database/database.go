// Package database opens the libSQL files used by the server store and the
// client session.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// Memory is the path of a private in-memory database.
const Memory = ":memory:"

// Open creates a SQLite connection via libSQL and configures it for
// concurrent use: WAL journal mode, 5 s busy timeout, foreign keys enabled.
//
// The pool is pinned to a single connection: an in-memory database exists
// per connection, and busy_timeout and foreign_keys are per-connection
// settings that would not reach a second pooled connection. Callers must
// close rows before issuing the next query.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// libSQL rejects Exec for PRAGMAs that return rows, so run them all
	// through QueryContext and drain. busy_timeout goes first so the rest
	// wait out a lock held by another handle on the same file.
	if err := pragma(ctx, db, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	// journal_mode is stored in the file; switching takes an exclusive
	// lock, so only do it when the file is not in WAL yet.
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading journal_mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		if err := pragma(ctx, db, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := pragma(ctx, db, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func pragma(ctx context.Context, db *sql.DB, p string) error {
	rows, err := db.QueryContext(ctx, p)
	if err != nil {
		return fmt.Errorf("executing %s: %w", p, err)
	}
	return rows.Close()
}
