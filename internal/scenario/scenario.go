// Package scenario loads the run configuration: the feature set, the
// subproblem/stage structure, solver options, and the input database
// location. Configuration is declared in HCL and is read-only once
// loaded.
package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/gridplan/internal/features"
)

// Scenario is the parsed, validated run configuration.
type Scenario struct {
	Name        string
	Database    string
	Features    features.Config
	Subproblems []Subproblem
	Solver      SolverConfig
}

// Subproblem is one independent unit of the run with its ordered stages.
type Subproblem struct {
	Name   string
	Stages []int
}

// SolverConfig selects the solver adapter and its options.
type SolverConfig struct {
	Name      string
	TimeLimit time.Duration
	RelGap    float64
	AbsGap    float64
}

type rootHCL struct {
	Scenarios []scenarioBlock `hcl:"scenario,block"`
}

type scenarioBlock struct {
	Name        string            `hcl:"name,label"`
	Database    string            `hcl:"database,optional"`
	Features    *featuresBlock    `hcl:"features,block"`
	Subproblems []subproblemBlock `hcl:"subproblem,block"`
	Solver      *solverBlock      `hcl:"solver,block"`
}

type featuresBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type subproblemBlock struct {
	Name   string `hcl:"name,label"`
	Stages []int  `hcl:"stages"`
}

type solverBlock struct {
	Name      string  `hcl:"name,optional"`
	TimeLimit string  `hcl:"time_limit,optional"`
	RelGap    float64 `hcl:"rel_gap,optional"`
	AbsGap    float64 `hcl:"abs_gap,optional"`
}

// Load reads and parses a scenario file from disk.
func Load(path string) (*Scenario, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes scenario HCL source. Exactly one scenario block is
// required.
func Parse(filename string, src []byte) (*Scenario, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	var root rootHCL
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}
	if len(root.Scenarios) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one scenario block, found %d", filename, len(root.Scenarios))
	}
	block := root.Scenarios[0]

	flags, err := decodeFeatures(block.Features)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", block.Name, err)
	}

	sc := &Scenario{
		Name:     block.Name,
		Database: block.Database,
		Features: features.New(flags),
	}

	seen := make(map[string]struct{})
	for _, sb := range block.Subproblems {
		if _, dup := seen[sb.Name]; dup {
			return nil, fmt.Errorf("scenario %q: duplicate subproblem %q", block.Name, sb.Name)
		}
		seen[sb.Name] = struct{}{}
		if len(sb.Stages) == 0 {
			return nil, fmt.Errorf("scenario %q: subproblem %q declares no stages", block.Name, sb.Name)
		}
		for i, stage := range sb.Stages {
			if stage <= 0 {
				return nil, fmt.Errorf("scenario %q: subproblem %q: stage numbers must be positive", block.Name, sb.Name)
			}
			if i > 0 && stage <= sb.Stages[i-1] {
				return nil, fmt.Errorf("scenario %q: subproblem %q: stages must be strictly increasing", block.Name, sb.Name)
			}
		}
		sc.Subproblems = append(sc.Subproblems, Subproblem{Name: sb.Name, Stages: sb.Stages})
	}
	if len(sc.Subproblems) == 0 {
		return nil, fmt.Errorf("scenario %q declares no subproblems", block.Name)
	}

	if block.Solver != nil {
		sc.Solver.Name = block.Solver.Name
		sc.Solver.RelGap = block.Solver.RelGap
		sc.Solver.AbsGap = block.Solver.AbsGap
		if block.Solver.TimeLimit != "" {
			limit, err := time.ParseDuration(block.Solver.TimeLimit)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: invalid solver time_limit: %w", block.Name, err)
			}
			sc.Solver.TimeLimit = limit
		}
	}

	return sc, nil
}

// decodeFeatures reads the free-form attributes of the features block.
// Every attribute must be a boolean literal; unknown feature names are
// accepted and simply never consulted.
func decodeFeatures(block *featuresBlock) (map[string]bool, error) {
	flags := make(map[string]bool)
	if block == nil {
		return flags, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid features block: %w", diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("feature %q: %w", name, diags)
		}
		if val.Type() != cty.Bool {
			return nil, fmt.Errorf("feature %q must be a boolean, got %s", name, val.Type().FriendlyName())
		}
		flags[name] = val.True()
	}
	return flags, nil
}

// UnitCount returns the total number of (subproblem, stage) units.
func (s *Scenario) UnitCount() int {
	n := 0
	for _, sp := range s.Subproblems {
		n += len(sp.Stages)
	}
	return n
}
