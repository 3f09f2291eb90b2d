// Package report aggregates per-(subproblem, stage) outcomes into the
// overall run outcome and renders the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vk/gridplan/internal/solver"
)

// Unit is the reported outcome of one (subproblem, stage).
type Unit struct {
	Subproblem string
	Stage      int
	State      string
	Status     solver.Status
	Objective  float64
	Duration   time.Duration
	Err        string
	// Skipped marks a stage that was never started because an earlier
	// stage of its subproblem failed, or the run was cancelled.
	Skipped bool
}

// Run is the aggregate outcome of a whole run. A single non-optimal unit
// makes the run failed; it is reported, never silently absorbed.
type Run struct {
	RunID    string
	Scenario string
	Units    []Unit
}

// Failed reports whether any unit fell short of an optimal, exported
// build.
func (r *Run) Failed() bool {
	for _, u := range r.Units {
		if u.Skipped || u.Err != "" || u.Status != solver.StatusOptimal {
			return true
		}
	}
	return false
}

// Unit finds the reported outcome for one (subproblem, stage).
func (r *Run) Unit(subproblem string, stage int) (Unit, bool) {
	for _, u := range r.Units {
		if u.Subproblem == subproblem && u.Stage == stage {
			return u, true
		}
	}
	return Unit{}, false
}

// Render writes the run summary table.
func (r *Run) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("run %s / scenario %s", r.RunID, r.Scenario))
	t.AppendHeader(table.Row{"Subproblem", "Stage", "State", "Status", "Objective", "Elapsed", "Error"})
	for _, u := range r.Units {
		status := string(u.Status)
		if u.Skipped {
			status = "skipped"
		}
		objective := ""
		if u.Status == solver.StatusOptimal {
			objective = fmt.Sprintf("%.4f", u.Objective)
		}
		t.AppendRow(table.Row{u.Subproblem, u.Stage, u.State, status, objective, u.Duration.Round(time.Millisecond), u.Err})
	}
	t.Render()
}
