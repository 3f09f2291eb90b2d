package scenariodb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/capability"
)

// Rows implements capability.InputSource. Rows seeded under stage 0 are
// merged with exact-stage rows, the exact stage winning attribute by
// attribute. Key order follows first appearance in the database.
func (db *DB) Rows(ctx context.Context, subproblem string, stage int, table string) ([]capability.InputRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key, attr, value FROM inputs
		 WHERE subproblem = ? AND tbl = ? AND stage IN (0, ?)
		 ORDER BY stage, rowid`,
		subproblem, table, stage)
	if err != nil {
		return nil, fmt.Errorf("query inputs %s: %w", table, err)
	}
	defer rows.Close()

	byKey := make(map[string]*capability.InputRow)
	var order []string
	for rows.Next() {
		var key, attr string
		var value float64
		if err := rows.Scan(&key, &attr, &value); err != nil {
			return nil, fmt.Errorf("scan inputs %s: %w", table, err)
		}
		row, ok := byKey[key]
		if !ok {
			row = &capability.InputRow{Key: key, Attrs: make(map[string]float64)}
			byKey[key] = row
			order = append(order, key)
		}
		row.Attrs[attr] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs %s: %w", table, err)
	}

	out := make([]capability.InputRow, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

// Scalar implements capability.InputSource for single values, stored as
// the "value" attribute of a keyed row.
func (db *DB) Scalar(ctx context.Context, subproblem string, stage int, table, key string) (float64, bool, error) {
	var value float64
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM inputs
		 WHERE subproblem = ? AND tbl = ? AND key = ? AND attr = 'value' AND stage IN (0, ?)
		 ORDER BY stage DESC LIMIT 1`,
		subproblem, table, key, stage).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query scalar %s/%s: %w", table, key, err)
	}
	return value, true, nil
}
