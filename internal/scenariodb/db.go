// Package scenariodb provides the relational store behind a run: the
// read-only input source the data-loading hooks draw from, and the
// append-only output sink results and validation findings land in. Both
// sides live in one SQLite file.
package scenariodb

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection for one scenario database.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) a scenario database.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario database: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate creates the schema if it does not exist. Inputs are a generic
// (subproblem, stage, table, key, attribute) -> value relation; stage 0
// rows apply to every stage of their subproblem unless overridden.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS inputs (
			subproblem TEXT NOT NULL,
			stage      INTEGER NOT NULL,
			tbl        TEXT NOT NULL,
			key        TEXT NOT NULL,
			attr       TEXT NOT NULL,
			value      REAL NOT NULL,
			PRIMARY KEY (subproblem, stage, tbl, key, attr)
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id     TEXT NOT NULL,
			subproblem TEXT NOT NULL,
			stage      INTEGER NOT NULL,
			module     TEXT NOT NULL,
			tbl        TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			severity   TEXT NOT NULL,
			module     TEXT NOT NULL,
			subproblem TEXT NOT NULL,
			stage      INTEGER NOT NULL,
			tbl        TEXT NOT NULL,
			message    TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SeedInput inserts or replaces one input value. Stage 0 seeds a default
// for all stages of the subproblem.
func (db *DB) SeedInput(ctx context.Context, subproblem string, stage int, table, key, attr string, value float64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO inputs(subproblem, stage, tbl, key, attr, value) VALUES (?,?,?,?,?,?)`,
		subproblem, stage, table, key, attr, value)
	if err != nil {
		return fmt.Errorf("seed input %s/%s.%s: %w", table, key, attr, err)
	}
	return nil
}
