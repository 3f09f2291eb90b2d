package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/internal/scenariodb"
	"github.com/vk/gridplan/internal/testutil"
)

func builtinRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, mod := range coreModules {
		mod.Register(reg)
	}
	return reg
}

func TestBuiltinCatalogShape(t *testing.T) {
	reg := builtinRegistry(t)
	require.Len(t, reg.All(), len(coreModules))

	var names []string
	for _, d := range reg.All() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"geography", "projects", "loadbalance", "objective",
		"transmission", "carboncap", "regup",
		"txcarbon",
	}, names)
}

func TestFeatureResolutionAgainstBuiltinCatalog(t *testing.T) {
	reg := builtinRegistry(t)
	ctx := context.Background()

	// Both governing flags on: the cross-feature module activates.
	both := reg.DetermineModules(ctx, features.New(map[string]bool{
		features.Transmission: true,
		features.CarbonCap:    true,
	}))
	assert.Equal(t, []string{
		"geography", "projects", "loadbalance", "objective",
		"transmission", "carboncap",
		"txcarbon",
	}, both)

	// One of its flags off: the cross-feature module silently drops out.
	txOnly := reg.DetermineModules(ctx, features.New(map[string]bool{
		features.Transmission: true,
	}))
	assert.Equal(t, []string{
		"geography", "projects", "loadbalance", "objective",
		"transmission",
	}, txOnly)

	// No features at all: only the core catalog remains.
	core := reg.DetermineModules(ctx, features.New(nil))
	assert.Equal(t, []string{"geography", "projects", "loadbalance", "objective"}, core)
}

// seedDatabase creates and populates a scenario database on disk,
// returning its path for the scenario file to reference.
func seedDatabase(t *testing.T, subproblems ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inputs.db")
	db, err := scenariodb.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	for _, sp := range subproblems {
		testutil.SeedBaseSystem(t, db, sp)
	}
	require.NoError(t, db.Close())
	return path
}

func scenarioFile(t *testing.T, dbPath string) string {
	t.Helper()
	return testutil.WriteScenarioFile(t, fmt.Sprintf(`
scenario "app_test" {
  database = %q

  subproblem "s1" {
    stages = [1, 2]
  }
}
`, dbPath))
}

func TestNewAppPanicsOnStartupErrors(t *testing.T) {
	out := &testutil.SafeBuffer{}

	assert.Panics(t, func() {
		NewApp(out, &Config{ScenarioPath: "does-not-exist.hcl"})
	})

	// A scenario with no database and no override cannot run.
	path := testutil.WriteScenarioFile(t, `
scenario "no_db" {
  subproblem "s1" { stages = [1] }
}
`)
	assert.Panics(t, func() {
		NewApp(out, &Config{ScenarioPath: path})
	})
}

func TestDatabaseFlagOverridesScenarioFile(t *testing.T) {
	dbPath := seedDatabase(t, "s1")
	path := testutil.WriteScenarioFile(t, `
scenario "no_db" {
  subproblem "s1" { stages = [1] }
}
`)
	app := NewApp(&testutil.SafeBuffer{}, &Config{ScenarioPath: path, Database: dbPath})
	assert.Equal(t, dbPath, app.Scenario().Database)
}

func TestRunEndToEnd(t *testing.T) {
	dbPath := seedDatabase(t, "s1")
	cfg := &Config{
		ScenarioPath: scenarioFile(t, dbPath),
		LogFormat:    "json",
		LogLevel:     "error",
		WorkerCount:  2,
	}
	out := &testutil.SafeBuffer{}
	app := NewApp(out, cfg)

	require.NoError(t, app.Run(context.Background(), cfg))
	assert.Contains(t, out.String(), "scenario app_test")
	assert.Contains(t, out.String(), "optimal")

	// Both stages exported results, the second against the first's build.
	db, err := scenariodb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	for _, stage := range []int{1, 2} {
		rows, err := db.Results(context.Background(), "s1", stage)
		require.NoError(t, err)
		assert.NotEmpty(t, rows, "stage %d exported nothing", stage)
	}
}

func TestValidateOnlySkipsTheRun(t *testing.T) {
	dbPath := seedDatabase(t, "s1")
	cfg := &Config{
		ScenarioPath: scenarioFile(t, dbPath),
		LogLevel:     "error",
		ValidateOnly: true,
	}
	out := &testutil.SafeBuffer{}
	app := NewApp(out, cfg)

	require.NoError(t, app.Run(context.Background(), cfg))
	assert.Contains(t, out.String(), "validation: 0 findings (0 errors)")

	db, err := scenariodb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Results(context.Background(), "s1", 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStrictModeBlocksOnErrorFindings(t *testing.T) {
	// The database exists but holds no inputs, so validation reports
	// error findings for every unit.
	dbPath := seedDatabase(t)
	cfg := &Config{
		ScenarioPath: scenarioFile(t, dbPath),
		LogLevel:     "error",
		Strict:       true,
	}
	app := NewApp(&testutil.SafeBuffer{}, cfg)

	err := app.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to run")
}

func TestFailedUnitsFailTheRun(t *testing.T) {
	// carbon_cap is enabled but policy.carbon_cap_tons is never seeded,
	// so every stage fails data binding.
	dbPath := seedDatabase(t, "s1")
	path := testutil.WriteScenarioFile(t, fmt.Sprintf(`
scenario "app_test" {
  database = %q

  features {
    carbon_cap = true
  }

  subproblem "s1" {
    stages = [1, 2]
  }
}
`, dbPath))
	cfg := &Config{
		ScenarioPath: path,
		LogLevel:     "error",
		WorkerCount:  1,
	}
	app := NewApp(&testutil.SafeBuffer{}, cfg)

	err := app.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed units")
}
