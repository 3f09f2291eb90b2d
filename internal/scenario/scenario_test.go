package scenario_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/scenario"
	"github.com/vk/gridplan/internal/testutil"
)

const fullScenario = `
scenario "toy_2030" {
  database = "inputs.db"

  features {
    transmission   = true
    carbon_cap     = true
    regulation_up  = false
  }

  subproblem "horizon_2030" {
    stages = [1, 2]
  }

  subproblem "horizon_2040" {
    stages = [1]
  }

  solver {
    name       = "dispatch"
    time_limit = "90s"
    rel_gap    = 0.01
  }
}
`

func TestParseFullScenario(t *testing.T) {
	sc, err := scenario.Parse("test.hcl", []byte(fullScenario))
	require.NoError(t, err)

	assert.Equal(t, "toy_2030", sc.Name)
	assert.Equal(t, "inputs.db", sc.Database)
	assert.True(t, sc.Features.Enabled(features.Transmission))
	assert.True(t, sc.Features.Enabled(features.CarbonCap))
	assert.False(t, sc.Features.Enabled(features.RegulationUp))

	require.Len(t, sc.Subproblems, 2)
	assert.Equal(t, "horizon_2030", sc.Subproblems[0].Name)
	assert.Equal(t, []int{1, 2}, sc.Subproblems[0].Stages)
	assert.Equal(t, []int{1}, sc.Subproblems[1].Stages)
	assert.Equal(t, 3, sc.UnitCount())

	assert.Equal(t, "dispatch", sc.Solver.Name)
	assert.Equal(t, 90*time.Second, sc.Solver.TimeLimit)
	assert.Equal(t, 0.01, sc.Solver.RelGap)
}

func TestParseMinimalScenario(t *testing.T) {
	src := `
scenario "bare" {
  subproblem "only" {
    stages = [1]
  }
}
`
	sc, err := scenario.Parse("test.hcl", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, sc.Database)
	assert.False(t, sc.Features.Enabled(features.Transmission))
	assert.Empty(t, sc.Solver.Name)
	assert.Zero(t, sc.Solver.TimeLimit)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "no scenario block",
			src:  ``,
			want: "exactly one scenario block",
		},
		{
			name: "two scenario blocks",
			src: `
scenario "a" {
  subproblem "x" { stages = [1] }
}
scenario "b" {
  subproblem "x" { stages = [1] }
}
`,
			want: "exactly one scenario block",
		},
		{
			name: "no subproblems",
			src:  `scenario "a" {}`,
			want: "declares no subproblems",
		},
		{
			name: "empty stages",
			src: `
scenario "a" {
  subproblem "x" { stages = [] }
}
`,
			want: "declares no stages",
		},
		{
			name: "zero stage",
			src: `
scenario "a" {
  subproblem "x" { stages = [0, 1] }
}
`,
			want: "must be positive",
		},
		{
			name: "stages out of order",
			src: `
scenario "a" {
  subproblem "x" { stages = [2, 1] }
}
`,
			want: "strictly increasing",
		},
		{
			name: "duplicate stage",
			src: `
scenario "a" {
  subproblem "x" { stages = [1, 1] }
}
`,
			want: "strictly increasing",
		},
		{
			name: "duplicate subproblem",
			src: `
scenario "a" {
  subproblem "x" { stages = [1] }
  subproblem "x" { stages = [1] }
}
`,
			want: "duplicate subproblem",
		},
		{
			name: "non-boolean feature",
			src: `
scenario "a" {
  features { transmission = "yes" }
  subproblem "x" { stages = [1] }
}
`,
			want: "must be a boolean",
		},
		{
			name: "bad time limit",
			src: `
scenario "a" {
  subproblem "x" { stages = [1] }
  solver { time_limit = "ninety seconds" }
}
`,
			want: "time_limit",
		},
		{
			name: "not hcl at all",
			src:  `{{{`,
			want: "failed to parse",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := scenario.Parse("test.hcl", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestUnknownFeatureNamesAreAccepted(t *testing.T) {
	src := `
scenario "a" {
  features {
    flux_capacitor = true
  }
  subproblem "x" { stages = [1] }
}
`
	sc, err := scenario.Parse("test.hcl", []byte(src))
	require.NoError(t, err)
	assert.True(t, sc.Features.Enabled("flux_capacitor"))
}

func TestLoadReadsFromDisk(t *testing.T) {
	path := testutil.WriteScenarioFile(t, fullScenario)
	sc, err := scenario.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "toy_2030", sc.Name)

	_, err = scenario.Load(path + ".missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
