package scenariodb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/scenariodb"
	"github.com/vk/gridplan/internal/testutil"
)

func TestRowsMergeStageZeroWithExactStage(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()

	// Stage 0 seeds defaults for every stage; stage 2 overrides one
	// attribute of one key and adds a new key.
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "wind", "max_build_mw", 200))
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "wind", "build_cost", 30))
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "coal", "max_build_mw", 100))
	require.NoError(t, db.SeedInput(ctx, "s1", 2, "projects", "wind", "build_cost", 25))
	require.NoError(t, db.SeedInput(ctx, "s1", 2, "projects", "nuclear", "max_build_mw", 50))

	stage1, err := db.Rows(ctx, "s1", 1, "projects")
	require.NoError(t, err)
	require.Len(t, stage1, 2)
	assert.Equal(t, "wind", stage1[0].Key)
	assert.Equal(t, 30.0, stage1[0].Attrs["build_cost"])

	stage2, err := db.Rows(ctx, "s1", 2, "projects")
	require.NoError(t, err)
	require.Len(t, stage2, 3)
	byKey := make(map[string]capability.InputRow)
	for _, r := range stage2 {
		byKey[r.Key] = r
	}
	assert.Equal(t, 25.0, byKey["wind"].Attrs["build_cost"])
	assert.Equal(t, 200.0, byKey["wind"].Attrs["max_build_mw"])
	assert.Equal(t, 50.0, byKey["nuclear"].Attrs["max_build_mw"])
}

func TestRowsAreScopedToSubproblemAndTable(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "wind", "max_build_mw", 200))
	require.NoError(t, db.SeedInput(ctx, "s2", 0, "projects", "solar", "max_build_mw", 150))
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "load_zones", "za", "present", 1))

	rows, err := db.Rows(ctx, "s1", 1, "projects")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wind", rows[0].Key)

	empty, err := db.Rows(ctx, "s1", 1, "no_such_table")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestScalarPrefersExactStage(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "policy", "carbon_cap_tons", "value", 500))
	require.NoError(t, db.SeedInput(ctx, "s1", 2, "policy", "carbon_cap_tons", "value", 300))

	v, ok, err := db.Scalar(ctx, "s1", 1, "policy", "carbon_cap_tons")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 500.0, v)

	v, ok, err = db.Scalar(ctx, "s1", 2, "policy", "carbon_cap_tons")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 300.0, v)

	_, ok, err = db.Scalar(ctx, "s1", 1, "policy", "never_seeded")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultRoundTrip(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()

	row := capability.ResultRow{
		RunID: "run-1", Subproblem: "s1", Stage: 1,
		Module: "projects", Table: "capacity", Key: "wind", Value: 120,
	}
	require.NoError(t, db.WriteResult(ctx, row))
	require.NoError(t, db.WriteResult(ctx, capability.ResultRow{
		RunID: "run-1", Subproblem: "s1", Stage: 2,
		Module: "projects", Table: "capacity", Key: "wind", Value: 140,
	}))

	got, err := db.Results(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row, got[0])
}

func TestFindingRoundTrip(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()

	f := capability.Finding{
		Severity: capability.SeverityError, Module: "geography",
		Subproblem: "s1", Stage: 1, Table: "load_zones",
		Message: "no load zones defined",
	}
	require.NoError(t, db.WriteFinding(ctx, f))

	got, err := db.Findings(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f, got[0])
}

func TestRunSinkStampsRunID(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()
	sink := &scenariodb.RunSink{DB: db, RunID: "run-42"}

	require.NoError(t, sink.WriteResult(ctx, capability.ResultRow{
		Subproblem: "s1", Stage: 1, Module: "m", Table: "t", Key: "k", Value: 1,
	}))
	require.NoError(t, sink.WriteResult(ctx, capability.ResultRow{
		RunID: "explicit", Subproblem: "s1", Stage: 1, Module: "m", Table: "t", Key: "k2", Value: 2,
	}))

	got, err := db.Results(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-42", got[0].RunID)
	assert.Equal(t, "explicit", got[1].RunID)
}

func TestSeedInputReplacesOnConflict(t *testing.T) {
	db := testutil.TempDB(t)
	ctx := context.Background()
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "wind", "build_cost", 30))
	require.NoError(t, db.SeedInput(ctx, "s1", 0, "projects", "wind", "build_cost", 28))

	rows, err := db.Rows(ctx, "s1", 1, "projects")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 28.0, rows[0].Attrs["build_cost"])
}
