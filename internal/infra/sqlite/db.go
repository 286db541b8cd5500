// Package sqlite keeps a local distribution history for the offline CLI.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a single-writer SQLite database
type DB struct {
	*sql.DB
}

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS distribution_declarations (
			seq                     INTEGER PRIMARY KEY AUTOINCREMENT,
			id                      TEXT NOT NULL UNIQUE,
			case_id                 TEXT NOT NULL,
			distribution_type       TEXT NOT NULL,
			sum_to_distribute       TEXT NOT NULL,
			sum_to_retain           TEXT NOT NULL,
			net_distribution        TEXT NOT NULL,
			total_claims            TEXT NOT NULL,
			dividend_rate           TEXT NOT NULL,
			dividend_rate_label     TEXT NOT NULL,
			per_claim_distributions TEXT NOT NULL,
			inactive_claims         TEXT NOT NULL DEFAULT '[]',
			declared_date           TEXT NOT NULL,
			declared_by             TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_declarations_case ON distribution_declarations(case_id, declared_date)`,
	}
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if err := db.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	for i, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
