// Package solver defines the adapter boundary between the assembly
// pipeline and whatever actually solves the instance, plus a built-in
// deterministic dispatch heuristic so a run works end to end without an
// external solver.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/gridplan/internal/model"
)

// Status is the terminal outcome of one solve. A non-optimal status is a
// recorded result, not an error.
type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusUnbounded   Status = "unbounded"
	StatusSolverError Status = "solver_error"
	StatusTimeout     Status = "timeout"
)

// Options configures a solve call.
type Options struct {
	Solver    string
	TimeLimit time.Duration
	RelGap    float64
	AbsGap    float64
}

// Result captures one solve outcome. Immutable once produced.
type Result struct {
	Status    Status
	Objective float64
	Values    map[string]float64
	Messages  []string
}

// Value returns a decision value from the result.
func (r *Result) Value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Adapter solves a concrete instance. An adapter error means the solve
// could not even be attempted; outcome-level failures are expressed via
// Result.Status.
type Adapter interface {
	Solve(ctx context.Context, in *model.Instance, opts Options) (*Result, error)
}

// New resolves an adapter by name. The empty name selects the built-in
// dispatch heuristic.
func New(name string) (Adapter, error) {
	switch name {
	case "", "dispatch":
		return &Dispatch{}, nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}
