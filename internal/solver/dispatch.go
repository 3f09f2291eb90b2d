package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/model"
)

// feasTol is the feasibility tolerance of the built-in heuristic.
const feasTol = 1e-6

// Dispatch is the built-in merit-order heuristic. It tightens variable
// upper bounds from capacity-style <= constraints, starts every free
// variable at its lower bound, and sweeps the constraints in creation
// order, raising the cheapest eligible variables to clear deficits of
// equality/>= constraints and excesses of <= constraints. Sweeping repeats
// until a full pass changes nothing, then every constraint is verified.
//
// The heuristic is deterministic: ties between equally cheap variables
// break on declaration order, never on map iteration.
//
// The heuristic terminates when feasible, not when provably optimal, so the
// RelGap and AbsGap options carry no meaning here. They are acknowledged in
// the result messages rather than silently dropped.
type Dispatch struct{}

// Solve implements the Adapter interface.
func (d *Dispatch) Solve(ctx context.Context, in *model.Instance, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("solver", "dispatch", "instance", in.Name)
	start := time.Now()

	deadline := time.Time{}
	if opts.TimeLimit > 0 {
		deadline = start.Add(opts.TimeLimit)
	}

	vars := in.Variables()
	values := make(map[string]float64, len(vars))
	upper := make(map[string]float64, len(vars))
	for _, v := range vars {
		switch {
		case v.Fixed:
			values[v.Name] = v.FixedValue
		case math.IsInf(v.Lower, -1):
			values[v.Name] = 0
		default:
			values[v.Name] = v.Lower
		}
		if v.Fixed {
			upper[v.Name] = v.FixedValue
		} else {
			upper[v.Name] = v.Upper
		}
		if v.Cost < 0 && math.IsInf(v.Upper, 1) && !v.Fixed {
			return &Result{
				Status:   StatusUnbounded,
				Messages: []string{fmt.Sprintf("variable %s has negative cost and no upper bound", v.Name)},
			}, nil
		}
	}

	cons := in.Constraints()
	tightenBounds(cons, upper)
	maxPasses := 2*len(cons) + 4
	for pass := 0; pass < maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return timeoutResult(err), nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return timeoutResult(fmt.Errorf("time limit %s exceeded", opts.TimeLimit)), nil
		}
		changed := false
		for _, c := range cons {
			if d.clear(in, c, values, upper) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, c := range cons {
		act := activity(c, values)
		violated := false
		switch c.Sense {
		case model.LessEq:
			violated = act > c.RHS+feasTol
		case model.GreaterEq:
			violated = act < c.RHS-feasTol
		case model.Eq:
			violated = math.Abs(act-c.RHS) > feasTol
		}
		if violated {
			logger.Debug("Constraint violated after dispatch sweeps.",
				"constraint", c.Name, "activity", act, "rhs", c.RHS, "sense", c.Sense.String())
			return &Result{
				Status: StatusInfeasible,
				Messages: []string{fmt.Sprintf("constraint %s violated: activity %.6f %s %.6f",
					c.Name, act, c.Sense, c.RHS)},
			}, nil
		}
	}

	var objective float64
	for _, v := range vars {
		objective += v.Cost * values[v.Name]
	}
	logger.Debug("Dispatch solve finished.", "objective", objective, "elapsed", time.Since(start))
	res := &Result{
		Status:    StatusOptimal,
		Objective: objective,
		Values:    values,
	}
	if opts.RelGap > 0 || opts.AbsGap > 0 {
		res.Messages = append(res.Messages,
			"optimality gap options have no effect on the dispatch heuristic")
	}
	return res, nil
}

// tightenBounds derives effective upper bounds from <= constraints that
// carry exactly one positive-coefficient term, e.g. a dispatch variable
// limited by existing capacity plus buildable capacity. Without this the
// sweeps can over-commit a variable against its declared bound and leave a
// capacity constraint permanently violated. Bounds feed each other, so the
// derivation repeats until a pass changes nothing.
func tightenBounds(cons []*model.Constraint, upper map[string]float64) {
	for pass := 0; pass <= len(cons); pass++ {
		changed := false
		for _, c := range cons {
			if c.Sense != model.LessEq {
				continue
			}
			var target string
			var targetCoef float64
			positives := 0
			for _, t := range c.Terms {
				if t.Coef > 0 {
					positives++
					target, targetCoef = t.Var, t.Coef
				}
			}
			if positives != 1 {
				continue
			}
			implied := c.RHS
			for _, t := range c.Terms {
				if t.Var == target {
					continue
				}
				// Negative-coefficient terms relax the bound by up to their
				// own upper bound.
				implied += -t.Coef * upper[t.Var]
			}
			if math.IsInf(implied, 1) || math.IsNaN(implied) {
				continue
			}
			implied /= targetCoef
			if implied < upper[target] {
				upper[target] = implied
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

// clear attempts to remove the residual of one constraint by raising
// eligible variables, cheapest first. It reports whether any value moved.
func (d *Dispatch) clear(in *model.Instance, c *model.Constraint, values, upper map[string]float64) bool {
	act := activity(c, values)
	var need float64  // residual to clear by raising variables
	var wantCoef bool // true: raise positive-coef vars, false: negative-coef
	switch c.Sense {
	case model.GreaterEq:
		if act >= c.RHS-feasTol {
			return false
		}
		need, wantCoef = c.RHS-act, true
	case model.LessEq:
		if act <= c.RHS+feasTol {
			return false
		}
		need, wantCoef = act-c.RHS, false
	case model.Eq:
		switch {
		case act < c.RHS-feasTol:
			need, wantCoef = c.RHS-act, true
		case act > c.RHS+feasTol:
			need, wantCoef = act-c.RHS, false
		default:
			return false
		}
	}

	type candidate struct {
		v    *model.Variable
		coef float64
		pos  int
	}
	var cands []candidate
	for i, t := range c.Terms {
		v, ok := in.Var(t.Var)
		if !ok || v.Fixed {
			continue
		}
		if (wantCoef && t.Coef > 0) || (!wantCoef && t.Coef < 0) {
			cands = append(cands, candidate{v: v, coef: t.Coef, pos: i})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].v.Cost != cands[j].v.Cost {
			return cands[i].v.Cost < cands[j].v.Cost
		}
		return cands[i].pos < cands[j].pos
	})

	moved := false
	for _, cand := range cands {
		if need <= feasTol {
			break
		}
		headroom := upper[cand.v.Name] - values[cand.v.Name]
		if headroom <= 0 {
			continue
		}
		step := need / math.Abs(cand.coef)
		if step > headroom {
			step = headroom
		}
		values[cand.v.Name] += step
		need -= step * math.Abs(cand.coef)
		moved = true
	}
	return moved
}

func activity(c *model.Constraint, values map[string]float64) float64 {
	var act float64
	for _, t := range c.Terms {
		act += t.Coef * values[t.Var]
	}
	return act
}

func timeoutResult(cause error) *Result {
	return &Result{
		Status:   StatusTimeout,
		Messages: []string{cause.Error()},
	}
}
