package regup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/pipeline"
	"github.com/vk/gridplan/internal/scenariodb"
	"github.com/vk/gridplan/internal/solver"
	"github.com/vk/gridplan/internal/testutil"
	"github.com/vk/gridplan/modules/geography"
	"github.com/vk/gridplan/modules/loadbalance"
	"github.com/vk/gridplan/modules/objective"
	"github.com/vk/gridplan/modules/projects"
	"github.com/vk/gridplan/modules/regup"
)

func runStage(t *testing.T, db *scenariodb.DB) *pipeline.StageResult {
	t.Helper()
	caps := []capability.Capability{
		&geography.Geography{},
		&projects.Projects{},
		&loadbalance.LoadBalance{},
		&objective.Objective{},
		&regup.RegUp{},
	}
	f := features.New(map[string]bool{features.RegulationUp: true})
	sink := &scenariodb.RunSink{DB: db, RunID: "regup-run"}
	p := pipeline.New(caps, f, db, sink, &solver.Dispatch{}, solver.Options{}, "regup-run")
	return p.RunStage(context.Background(), "s1", 1, nil, true)
}

func provision(t *testing.T, db *scenariodb.DB, key string) float64 {
	t.Helper()
	rows, err := db.Results(context.Background(), "s1", 1)
	require.NoError(t, err)
	for _, r := range rows {
		if r.Table == "regup_provision" && r.Key == key {
			return r.Value
		}
	}
	t.Fatalf("no regup_provision row for %s", key)
	return 0
}

func TestRequirementIsProvisioned(t *testing.T) {
	db := testutil.TempDB(t)
	testutil.SeedBaseSystem(t, db, "s1")
	require.NoError(t, db.SeedInput(context.Background(), "s1", 0, "regup_requirement", "za.t1", "mw", 20))

	res := runStage(t, db)
	require.NoError(t, res.Err)
	require.Equal(t, solver.StatusOptimal, res.Status)

	// The base system serves 100 MW from wind; the 20 MW requirement
	// lands on the cheapest provider with headroom.
	total := provision(t, db, "wind.t1") + provision(t, db, "coal.t1")
	assert.InDelta(t, 20, total, 1e-6)
}

func TestZeroRequirementAddsNoConstraint(t *testing.T) {
	db := testutil.TempDB(t)
	testutil.SeedBaseSystem(t, db, "s1")

	res := runStage(t, db)
	require.NoError(t, res.Err)
	require.Equal(t, solver.StatusOptimal, res.Status)

	// With no seeded requirement nothing forces provision, and the
	// objective matches the plain capacity run.
	assert.InDelta(t, 0, provision(t, db, "wind.t1"), 1e-6)
	assert.InDelta(t, 0, provision(t, db, "coal.t1"), 1e-6)
	assert.InDelta(t, 3100, res.Objective, 1e-6)
}
