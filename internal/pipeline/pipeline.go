// Package pipeline drives one (subproblem, stage) build through the
// assembly state machine: structure definition, data loading,
// instantiation, forward-fixing, solve, and export. Each build owns a
// fresh model and a fresh component store scope; nothing is shared with
// concurrent builds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/solver"
)

// State is the assembly progress of one (subproblem, stage) build.
type State int

const (
	Empty State = iota
	StructureDefined
	DataLoaded
	Instantiated
	ForwardFixed
	Solved
	Exported
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case StructureDefined:
		return "structure_defined"
	case DataLoaded:
		return "data_loaded"
	case Instantiated:
		return "instantiated"
	case ForwardFixed:
		return "forward_fixed"
	case Solved:
		return "solved"
	case Exported:
		return "exported"
	}
	return "unknown"
}

// Pipeline assembles and solves stage builds for one run. It is safe for
// concurrent use across subproblems: all fields are read-only after
// construction.
type Pipeline struct {
	caps     []capability.Capability
	features features.Config
	source   capability.InputSource
	sink     capability.OutputSink
	adapter  solver.Adapter
	opts     solver.Options
	runID    string
}

// New wires a pipeline from the loaded capability objects and the
// external collaborators.
func New(caps []capability.Capability, f features.Config, source capability.InputSource,
	sink capability.OutputSink, adapter solver.Adapter, opts solver.Options, runID string) *Pipeline {
	return &Pipeline{
		caps:     caps,
		features: f,
		source:   source,
		sink:     sink,
		adapter:  adapter,
		opts:     opts,
		runID:    runID,
	}
}

// StageResult is the terminal record of one build.
type StageResult struct {
	Subproblem string
	Stage      int
	State      State
	Status     solver.Status
	Objective  float64
	Messages   []string
	// Fixed is the decision set computed for the next stage of the same
	// subproblem; nil when this was the last stage or the solve failed.
	Fixed    capability.FixedDecisions
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the build reached an optimal solve and, when
// required, a completed export.
func (r *StageResult) Succeeded() bool {
	return r.Err == nil && r.Status == solver.StatusOptimal
}

// RunStage executes the full state machine for one (subproblem, stage).
// incoming carries the previous stage's fixed decisions; nil marks the
// first stage of a subproblem. lastStage suppresses computation of the
// next stage's fixed decision set.
func (p *Pipeline) RunStage(ctx context.Context, subproblem string, stage int,
	incoming capability.FixedDecisions, lastStage bool) *StageResult {

	start := time.Now()
	logger := ctxlog.FromContext(ctx).With("subproblem", subproblem, "stage", stage)
	ctx = ctxlog.WithLogger(ctx, logger)
	res := &StageResult{Subproblem: subproblem, Stage: stage, State: Empty}
	defer func() { res.Duration = time.Since(start) }()

	m := model.New(fmt.Sprintf("%s_stage%d", subproblem, stage))
	scope := compstore.NewScope()

	for _, c := range p.caps {
		sd, ok := c.(capability.StructureDefiner)
		if !ok {
			continue
		}
		if err := sd.DefineStructure(ctx, m, scope, p.features); err != nil {
			res.Err = fmt.Errorf("module %s: define structure: %w", c.Name(), err)
			return res
		}
	}
	res.State = StructureDefined
	logger.Debug("Structure defined.", "channels", scope.Channels())

	for _, c := range p.caps {
		dl, ok := c.(capability.DataLoader)
		if !ok {
			continue
		}
		if err := dl.LoadData(ctx, m, scope, p.source, subproblem, stage); err != nil {
			res.Err = fmt.Errorf("module %s: load data: %w", c.Name(), err)
			return res
		}
	}
	res.State = DataLoaded

	inst, err := m.Instantiate()
	if err != nil {
		var bindErr *model.BindingError
		if errors.As(err, &bindErr) {
			logger.Error("Data binding failed.", "missing", bindErr.Missing)
		}
		res.Err = fmt.Errorf("instantiate: %w", err)
		return res
	}
	res.State = Instantiated

	if incoming != nil {
		fixed := 0
		for _, v := range inst.Variables() {
			value, present := incoming[v.Name]
			if !v.Fixable || !present {
				continue
			}
			if err := inst.Fix(v.Name, value); err != nil {
				res.Err = fmt.Errorf("forward fix %s: %w", v.Name, err)
				return res
			}
			fixed++
		}
		res.State = ForwardFixed
		logger.Debug("Forward-fixed prior decisions.", "count", fixed)
	}

	solveRes, err := p.adapter.Solve(ctx, inst, p.opts)
	if err != nil {
		res.State = Solved
		res.Status = solver.StatusSolverError
		res.Messages = []string{err.Error()}
		logger.Error("Solver adapter failed.", "error", err)
		return res
	}
	res.State = Solved
	res.Status = solveRes.Status
	res.Objective = solveRes.Objective
	res.Messages = solveRes.Messages
	if solveRes.Status != solver.StatusOptimal {
		logger.Warn("Solve finished without optimal status.", "status", solveRes.Status)
		return res
	}

	for _, c := range p.caps {
		re, ok := c.(capability.ResultExporter)
		if !ok {
			continue
		}
		if err := re.ExportResults(ctx, inst, solveRes, p.sink, subproblem, stage); err != nil {
			res.Err = fmt.Errorf("module %s: export results: %w", c.Name(), err)
			return res
		}
	}
	res.State = Exported

	if !lastStage {
		res.Fixed = p.collectFixed(inst, solveRes)
		logger.Debug("Computed fixed decision set for next stage.", "count", len(res.Fixed))
	}
	logger.Info("Stage build complete.", "state", res.State.String(),
		"status", res.Status, "objective", res.Objective)
	return res
}

// collectFixed gathers values for every decision a module declared
// fixable, keyed by concrete variable name.
func (p *Pipeline) collectFixed(inst *model.Instance, res *solver.Result) capability.FixedDecisions {
	fixed := make(capability.FixedDecisions)
	for _, c := range p.caps {
		ff, ok := c.(capability.ForwardFixer)
		if !ok {
			continue
		}
		for _, family := range ff.FixableDecisions() {
			for _, v := range inst.FamilyVariables(family) {
				if !v.Fixable {
					continue
				}
				if value, ok := res.Value(v.Name); ok {
					fixed[v.Name] = value
				}
			}
		}
	}
	return fixed
}

// Validate runs every module's input validation hook for one
// (subproblem, stage), writes the findings to the sink, and returns them.
func (p *Pipeline) Validate(ctx context.Context, subproblem string, stage int) ([]capability.Finding, error) {
	logger := ctxlog.FromContext(ctx).With("subproblem", subproblem, "stage", stage)
	var all []capability.Finding
	for _, c := range p.caps {
		iv, ok := c.(capability.InputValidator)
		if !ok {
			continue
		}
		findings, err := iv.ValidateInputs(ctx, p.source, subproblem, stage)
		if err != nil {
			return all, fmt.Errorf("module %s: validate inputs: %w", c.Name(), err)
		}
		for i := range findings {
			findings[i].Module = c.Name()
			findings[i].Subproblem = subproblem
			findings[i].Stage = stage
			if err := p.sink.WriteFinding(ctx, findings[i]); err != nil {
				return all, err
			}
		}
		all = append(all, findings...)
	}
	logger.Debug("Input validation complete.", "findings", len(all))
	return all, nil
}

// RunID returns the identifier stamped on exported result rows.
func (p *Pipeline) RunID() string { return p.runID }
