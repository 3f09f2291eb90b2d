// Package projects contributes the supply side: candidate and existing
// generation projects, their build and dispatch decisions, and the
// capacity coupling between the two. Build decisions are fixable, which
// is what threads a stage's expansion plan into the operational stages
// that follow it.
package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/internal/solver"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register installs the projects descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "projects",
		Category: registry.CategoryCore,
		Position: 20,
	}, func() capability.Capability { return &Projects{} })
}

// Projects is the loaded capability object.
type Projects struct{}

// Name implements capability.Capability.
func (p *Projects) Name() string { return "projects" }

// DefineStructure declares the project sets, parameters, and the Build
// and Power variable families, and publishes the project contributions to
// the shared channels. Consumers of those channels are unknown here; if a
// feature never enables one, the entries simply go unread.
func (p *Projects) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	err := errors.Join(
		m.AddSet("PROJECTS"),
		m.AddSet("PROJECT_TIMEPOINTS"),
		m.AddLookup("project_zone"),
		m.AddParam("existing_capacity_mw", "PROJECTS"),
		m.AddParam("max_build_mw", "PROJECTS"),
		m.AddParam("build_cost", "PROJECTS"),
		m.AddParam("variable_cost", "PROJECT_TIMEPOINTS"),
		m.AddParamDefault("emission_rate", "PROJECTS", 0),
	)
	if err != nil {
		return err
	}
	if err := m.AddVariables("Build", "PROJECTS", model.VarOpts{
		UpperParam: "max_build_mw",
		CostParam:  "build_cost",
		Fixable:    true,
	}); err != nil {
		return err
	}
	if err := m.AddVariables("Power", "PROJECT_TIMEPOINTS", model.VarOpts{
		Upper:     model.Inf,
		CostParam: "variable_cost",
	}); err != nil {
		return err
	}

	m.AddConstraintRule("project_capacity", func(in *model.Instance) error {
		for _, proj := range in.Set("PROJECTS") {
			existing, _ := in.Param("existing_capacity_mw", proj)
			for _, tp := range in.Set("TIMEPOINTS") {
				name := fmt.Sprintf("project_capacity[%s]", model.Key(proj, tp))
				terms := []model.Term{
					{Var: fmt.Sprintf("Power[%s]", model.Key(proj, tp)), Coef: 1},
					{Var: fmt.Sprintf("Build[%s]", proj), Coef: -1},
				}
				if err := in.AddConstraint(name, terms, model.LessEq, existing); err != nil {
					return err
				}
			}
		}
		return nil
	})

	store.Append(compstore.CostComponents, model.CostComponent{Component: "capacity_cost", Family: "Build"})
	store.Append(compstore.CostComponents, model.CostComponent{Component: "operating_cost", Family: "Power"})
	store.Append(compstore.CapacityTypes, "existing")
	store.Append(compstore.CapacityTypes, "new_build")
	store.Append(compstore.PowerProduction, model.BalanceContribution{
		Component: "project_power",
		Terms: func(in *model.Instance, zone, timepoint string) []model.Term {
			var terms []model.Term
			for _, proj := range in.Set("PROJECTS") {
				if z, ok := in.Lookup("project_zone", proj); !ok || z != zone {
					continue
				}
				terms = append(terms, model.Term{Var: fmt.Sprintf("Power[%s]", model.Key(proj, timepoint)), Coef: 1})
			}
			return terms
		},
	})
	store.Append(compstore.EmissionSources, model.EmissionSource{
		Component: "project_emissions",
		Terms: func(in *model.Instance) []model.Term {
			var terms []model.Term
			for _, proj := range in.Set("PROJECTS") {
				rate, _ := in.Param("emission_rate", proj)
				if rate == 0 {
					continue
				}
				for _, tp := range in.Set("TIMEPOINTS") {
					weight, _ := in.Param("timepoint_weight", tp)
					terms = append(terms, model.Term{
						Var:  fmt.Sprintf("Power[%s]", model.Key(proj, tp)),
						Coef: rate * weight,
					})
				}
			}
			return terms
		},
	})
	return nil
}

// LoadData reads the project roster and expands the per-timepoint
// parameters. The project_zones table uses composite "<project>.<zone>"
// keys to express the string-valued relation.
func (p *Projects) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	rows, err := src.Rows(ctx, subproblem, stage, "projects")
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := m.AddSetMembers("PROJECTS", row.Key); err != nil {
			return err
		}
		for attr, param := range map[string]string{
			"existing_mw":   "existing_capacity_mw",
			"max_build_mw":  "max_build_mw",
			"build_cost":    "build_cost",
			"emission_rate": "emission_rate",
		} {
			if v, ok := row.Attrs[attr]; ok {
				if err := m.SetParam(param, row.Key, v); err != nil {
					return err
				}
			}
		}
		for _, tp := range m.Set("TIMEPOINTS") {
			key := model.Key(row.Key, tp)
			if err := m.AddSetMembers("PROJECT_TIMEPOINTS", key); err != nil {
				return err
			}
			if vc, ok := row.Attrs["variable_cost"]; ok {
				if err := m.SetParam("variable_cost", key, vc); err != nil {
					return err
				}
			}
		}
	}

	relations, err := src.Rows(ctx, subproblem, stage, "project_zones")
	if err != nil {
		return err
	}
	for _, rel := range relations {
		proj, zone, ok := strings.Cut(rel.Key, ".")
		if !ok {
			return fmt.Errorf("project_zones key %q is not <project>.<zone>", rel.Key)
		}
		if err := m.SetLookup("project_zone", proj, zone); err != nil {
			return err
		}
	}
	return nil
}

// FixableDecisions implements capability.ForwardFixer: build decisions
// carry forward, dispatch does not.
func (p *Projects) FixableDecisions() []string {
	return []string{"Build"}
}

// ExportResults writes the built capacity and dispatch decisions.
func (p *Projects) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	for _, v := range in.FamilyVariables("Build") {
		value, _ := res.Value(v.Name)
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: p.Name(),
			Table: "capacity", Key: v.Element, Value: value,
		}); err != nil {
			return err
		}
	}
	for _, v := range in.FamilyVariables("Power") {
		value, _ := res.Value(v.Name)
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: p.Name(),
			Table: "dispatch", Key: v.Element, Value: value,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInputs checks the project roster.
func (p *Projects) ValidateInputs(ctx context.Context, src capability.InputSource,
	subproblem string, stage int) ([]capability.Finding, error) {

	rows, err := src.Rows(ctx, subproblem, stage, "projects")
	if err != nil {
		return nil, err
	}
	var findings []capability.Finding
	if len(rows) == 0 {
		findings = append(findings, capability.Finding{
			Severity: capability.SeverityError,
			Table:    "projects",
			Message:  "no projects defined",
		})
	}
	for _, row := range rows {
		if mb, ok := row.Attrs["max_build_mw"]; ok && mb < 0 {
			findings = append(findings, capability.Finding{
				Severity: capability.SeverityError,
				Table:    "projects",
				Message:  fmt.Sprintf("project %s has negative max_build_mw", row.Key),
			})
		}
		if _, ok := row.Attrs["variable_cost"]; !ok {
			findings = append(findings, capability.Finding{
				Severity: capability.SeverityWarning,
				Table:    "projects",
				Message:  fmt.Sprintf("project %s has no variable_cost, dispatch will fail to bind", row.Key),
			})
		}
	}
	return findings, nil
}
