// Package testutil provides shared helpers for the test suites: log
// capture, temp scenario databases, and canned input data.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/scenariodb"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// TempDB opens a migrated scenario database in a test temp dir.
func TempDB(t *testing.T) *scenariodb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.db")
	db, err := scenariodb.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

// WriteScenarioFile writes scenario HCL to a temp file and returns its path.
func WriteScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seed is one generic input row.
type seed struct {
	stage int
	table string
	key   string
	attr  string
	value float64
}

// SeedBaseSystem populates one zone, one timepoint, and two projects for
// a subproblem: cheap expandable wind and existing coal. Everything is
// seeded under stage 0, so it applies to every stage.
func SeedBaseSystem(t *testing.T, db *scenariodb.DB, subproblem string) {
	t.Helper()
	seeds := []seed{
		{0, "load_zones", "za", "present", 1},
		{0, "timepoints", "t1", "weight", 1},
		{0, "demand", "za.t1", "mw", 100},

		{0, "projects", "wind", "existing_mw", 0},
		{0, "projects", "wind", "max_build_mw", 200},
		{0, "projects", "wind", "build_cost", 30},
		{0, "projects", "wind", "variable_cost", 1},
		{0, "projects", "wind", "emission_rate", 0},
		{0, "project_zones", "wind.za", "present", 1},

		{0, "projects", "coal", "existing_mw", 80},
		{0, "projects", "coal", "max_build_mw", 100},
		{0, "projects", "coal", "build_cost", 50},
		{0, "projects", "coal", "variable_cost", 10},
		{0, "projects", "coal", "emission_rate", 0.9},
		{0, "project_zones", "coal.za", "present", 1},
	}
	ctx := context.Background()
	for _, s := range seeds {
		require.NoError(t, db.SeedInput(ctx, subproblem, s.stage, s.table, s.key, s.attr, s.value))
	}
}
