package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/executor"
	"github.com/vk/gridplan/internal/pipeline"
	"github.com/vk/gridplan/internal/scenariodb"
	"github.com/vk/gridplan/internal/solver"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	identifiers := a.registry.DetermineModules(ctx, a.scenario.Features)
	caps, err := a.registry.Load(ctx, identifiers)
	if err != nil {
		return fmt.Errorf("module resolution failed: %w", err)
	}

	adapter, err := solver.New(a.scenario.Solver.Name)
	if err != nil {
		return fmt.Errorf("solver configuration invalid: %w", err)
	}

	db, err := scenariodb.Open(a.scenario.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	runID := uuid.NewString()
	sink := &scenariodb.RunSink{DB: db, RunID: runID}
	opts := solver.Options{
		Solver:    a.scenario.Solver.Name,
		TimeLimit: a.scenario.Solver.TimeLimit,
		RelGap:    a.scenario.Solver.RelGap,
		AbsGap:    a.scenario.Solver.AbsGap,
	}
	pipe := pipeline.New(caps, a.scenario.Features, db, sink, adapter, opts, runID)

	findings, err := a.validateAll(ctx, pipe)
	if err != nil {
		return err
	}
	blocking := 0
	for _, f := range findings {
		if f.Severity == capability.SeverityError {
			blocking++
		}
	}
	a.logger.Info("Input validation finished.", "findings", len(findings), "errors", blocking)
	if cfg.ValidateOnly {
		fmt.Fprintf(a.outW, "validation: %d findings (%d errors)\n", len(findings), blocking)
		if cfg.Strict && blocking > 0 {
			return fmt.Errorf("validation reported %d error findings", blocking)
		}
		return nil
	}
	if cfg.Strict && blocking > 0 {
		return fmt.Errorf("refusing to run: validation reported %d error findings", blocking)
	}

	exec := executor.New(pipe, cfg.WorkerCount)
	outcome := exec.Run(ctx, a.scenario)
	outcome.Render(a.outW)
	if outcome.Failed() {
		return fmt.Errorf("run %s finished with failed units", runID)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// validateAll runs every module's validation hook for every
// (subproblem, stage) unit.
func (a *App) validateAll(ctx context.Context, pipe *pipeline.Pipeline) ([]capability.Finding, error) {
	var all []capability.Finding
	for _, sp := range a.scenario.Subproblems {
		for _, stage := range sp.Stages {
			findings, err := pipe.Validate(ctx, sp.Name, stage)
			if err != nil {
				return nil, err
			}
			all = append(all, findings...)
		}
	}
	return all, nil
}
