// Package capability defines the contract between the orchestration core
// and the capability modules it assembles. Every hook beyond Name is
// optional: a module implements only the interfaces relevant to it, and
// the engine checks for each with a type assertion before invoking.
package capability

import (
	"context"

	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/solver"
)

// Capability is the loaded, callable form of a module descriptor.
type Capability interface {
	Name() string
}

// StructureDefiner declares sets, parameters, variable families, and
// constraint rules, and may append to component store channels.
type StructureDefiner interface {
	DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error
}

// DataLoader populates the declared structure from the input source
// scoped to one (subproblem, stage).
type DataLoader interface {
	LoadData(ctx context.Context, m *model.Model, store *compstore.Scope, src InputSource, subproblem string, stage int) error
}

// ForwardFixer declares which of the module's variable families may be
// carried from one stage into the next as fixed decisions.
type ForwardFixer interface {
	FixableDecisions() []string
}

// ResultExporter emits per-(subproblem, stage) results to the output sink
// after a successful solve.
type ResultExporter interface {
	ExportResults(ctx context.Context, in *model.Instance, res *solver.Result, sink OutputSink, subproblem string, stage int) error
}

// InputValidator inspects the input source ahead of a run and reports
// findings without halting anything by itself.
type InputValidator interface {
	ValidateInputs(ctx context.Context, src InputSource, subproblem string, stage int) ([]Finding, error)
}

// FixedDecisions maps decision variable names to the values imposed on
// them by the previous stage of the same subproblem.
type FixedDecisions map[string]float64

// InputRow is one keyed row of an input table with its numeric attributes.
type InputRow struct {
	Key   string
	Attrs map[string]float64
}

// InputSource is the read-only provider of scenario parameter values.
// Rows and Scalar are scoped by (subproblem, stage); rows seeded for
// stage 0 apply to every stage unless overridden by an exact-stage row.
type InputSource interface {
	Rows(ctx context.Context, subproblem string, stage int, table string) ([]InputRow, error)
	Scalar(ctx context.Context, subproblem string, stage int, table, key string) (float64, bool, error)
}

// ResultRow is one exported result value.
type ResultRow struct {
	RunID      string
	Subproblem string
	Stage      int
	Module     string
	Table      string
	Key        string
	Value      float64
}

// Severity grades a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one non-fatal validation result.
type Finding struct {
	Severity   Severity
	Module     string
	Subproblem string
	Stage      int
	Table      string
	Message    string
}

// OutputSink is the append-only destination for results and findings.
type OutputSink interface {
	WriteResult(ctx context.Context, row ResultRow) error
	WriteFinding(ctx context.Context, f Finding) error
}
