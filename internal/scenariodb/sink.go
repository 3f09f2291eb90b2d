package scenariodb

import (
	"context"
	"fmt"

	"github.com/vk/gridplan/internal/capability"
)

// WriteResult implements capability.OutputSink. Result rows are only ever
// appended.
func (db *DB) WriteResult(ctx context.Context, row capability.ResultRow) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO results(run_id, subproblem, stage, module, tbl, key, value) VALUES (?,?,?,?,?,?,?)`,
		row.RunID, row.Subproblem, row.Stage, row.Module, row.Table, row.Key, row.Value)
	if err != nil {
		return fmt.Errorf("write result %s/%s: %w", row.Table, row.Key, err)
	}
	return nil
}

// WriteFinding implements capability.OutputSink.
func (db *DB) WriteFinding(ctx context.Context, f capability.Finding) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO findings(severity, module, subproblem, stage, tbl, message) VALUES (?,?,?,?,?,?)`,
		f.Severity, f.Module, f.Subproblem, f.Stage, f.Table, f.Message)
	if err != nil {
		return fmt.Errorf("write finding: %w", err)
	}
	return nil
}

// Results reads back exported result rows for one (subproblem, stage),
// primarily for tests and ad-hoc inspection.
func (db *DB) Results(ctx context.Context, subproblem string, stage int) ([]capability.ResultRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT run_id, subproblem, stage, module, tbl, key, value FROM results
		 WHERE subproblem = ? AND stage = ? ORDER BY rowid`,
		subproblem, stage)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []capability.ResultRow
	for rows.Next() {
		var r capability.ResultRow
		if err := rows.Scan(&r.RunID, &r.Subproblem, &r.Stage, &r.Module, &r.Table, &r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("scan results: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Findings reads back validation findings, for tests and the validate
// command's summary.
func (db *DB) Findings(ctx context.Context) ([]capability.Finding, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT severity, module, subproblem, stage, tbl, message FROM findings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var out []capability.Finding
	for rows.Next() {
		var f capability.Finding
		if err := rows.Scan(&f.Severity, &f.Module, &f.Subproblem, &f.Stage, &f.Table, &f.Message); err != nil {
			return nil, fmt.Errorf("scan findings: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
