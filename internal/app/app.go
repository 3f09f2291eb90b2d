// Package app wires the application together: logger, module registry,
// scenario configuration, and the run itself.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/internal/scenario"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPath string
	Database     string // overrides the scenario file's database path

	LogFormat    string
	LogLevel     string
	WorkerCount  int
	ValidateOnly bool
	Strict       bool
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	scenario *scenario.Scenario
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// A failure to load the scenario is a fatal startup error.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	sc, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		panic(fmt.Errorf("failed to load scenario: %w", err))
	}
	if cfg.Database != "" {
		sc.Database = cfg.Database
	}
	if sc.Database == "" {
		panic(fmt.Errorf("scenario %q names no database and none was given on the command line", sc.Name))
	}
	logger.Debug("Scenario loaded.", "scenario", sc.Name,
		"features", sc.Features.EnabledNames(), "subproblems", len(sc.Subproblems))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All capability modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		scenario: sc,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Scenario returns the loaded scenario. This is primarily for testing.
func (a *App) Scenario() *scenario.Scenario {
	return a.scenario
}
