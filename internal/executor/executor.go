// Package executor sequences a run across the scenario structure:
// subproblems are the unit of parallelism and fan out over a bounded
// worker pool, while stages within a subproblem run strictly in order,
// each solved stage's fixed decisions threading into the next.
package executor

import (
	"context"
	"sync"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/pipeline"
	"github.com/vk/gridplan/internal/report"
	"github.com/vk/gridplan/internal/scenario"
)

// Executor runs a scenario through the assembly pipeline.
type Executor struct {
	pipeline *pipeline.Pipeline
	workers  int
}

// New creates an executor with a bounded worker count.
func New(p *pipeline.Pipeline, workers int) *Executor {
	if workers <= 0 {
		workers = 1
	}
	return &Executor{pipeline: p, workers: workers}
}

// Run executes every subproblem of the scenario and aggregates the
// outcome. A failed stage halts the remaining stages of its own
// subproblem only; unaffected subproblems still complete. Cancelling the
// context prevents unstarted units from running but does not preempt a
// stage already mid-solve.
func (e *Executor) Run(ctx context.Context, sc *scenario.Scenario) *report.Run {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Run starting.", "scenario", sc.Name,
		"subproblems", len(sc.Subproblems), "units", sc.UnitCount(), "workers", e.workers)

	var mu sync.Mutex
	bySubproblem := make(map[string][]report.Unit, len(sc.Subproblems))

	subCh := make(chan scenario.Subproblem)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, subCh, workerID, func(name string, units []report.Unit) {
				mu.Lock()
				bySubproblem[name] = units
				mu.Unlock()
			})
		}(i)
	}

	for _, sp := range sc.Subproblems {
		subCh <- sp
	}
	close(subCh)
	wg.Wait()

	run := &report.Run{RunID: e.pipeline.RunID(), Scenario: sc.Name}
	for _, sp := range sc.Subproblems {
		run.Units = append(run.Units, bySubproblem[sp.Name]...)
	}
	logger.Info("Run finished.", "failed", run.Failed())
	return run
}

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, subCh <-chan scenario.Subproblem,
	workerID int, collect func(string, []report.Unit)) {

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)
	for sp := range subCh {
		workerLogger := logger.With("workerID", workerID, "subproblem", sp.Name)
		workerLogger.Debug("Worker picked up subproblem.")
		collect(sp.Name, e.runSubproblem(ctxlog.WithLogger(ctx, workerLogger), sp))
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runSubproblem drives one subproblem's stages in order. The first stage
// receives no fixed decisions; each later stage receives the set exported
// by its predecessor. A stage that does not reach an optimal, exported
// build halts everything after it in this subproblem.
func (e *Executor) runSubproblem(ctx context.Context, sp scenario.Subproblem) []report.Unit {
	units := make([]report.Unit, 0, len(sp.Stages))
	var incoming capability.FixedDecisions
	halted := false

	for i, stage := range sp.Stages {
		if halted || ctx.Err() != nil {
			units = append(units, report.Unit{
				Subproblem: sp.Name,
				Stage:      stage,
				State:      pipeline.Empty.String(),
				Skipped:    true,
			})
			continue
		}

		last := i == len(sp.Stages)-1
		res := e.pipeline.RunStage(ctx, sp.Name, stage, incoming, last)

		unit := report.Unit{
			Subproblem: sp.Name,
			Stage:      stage,
			State:      res.State.String(),
			Status:     res.Status,
			Objective:  res.Objective,
			Duration:   res.Duration,
		}
		if res.Err != nil {
			unit.Err = res.Err.Error()
		}
		units = append(units, unit)

		if !res.Succeeded() {
			halted = true
			continue
		}
		incoming = res.Fixed
	}
	return units
}
