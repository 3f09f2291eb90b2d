// Package regup contributes the regulation-up reserve product: per-zone
// requirements, project provision decisions, and the headroom coupling
// that keeps provision honest against committed capacity. Active only
// when the regulation_up feature is enabled.
package regup

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/internal/solver"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register installs the regup descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "regup",
		Category: registry.CategorySingleFeature,
		Requires: []string{features.RegulationUp},
		Position: 130,
	}, func() capability.Capability { return &RegUp{} })
}

// RegUp is the loaded capability object.
type RegUp struct{}

// Name implements capability.Capability.
func (r *RegUp) Name() string { return "regup" }

// DefineStructure declares provision variables, the headroom coupling,
// and the requirement rule fed from the reserve-providers channel.
func (r *RegUp) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	err := errors.Join(
		m.AddParamDefault("regup_requirement_mw", "ZONE_TIMEPOINTS", 0),
		m.AddParamDefault("regup_cost", "PROJECT_TIMEPOINTS", 0),
		m.AddVariables("RegUp", "PROJECT_TIMEPOINTS", model.VarOpts{
			Upper:     model.Inf,
			CostParam: "regup_cost",
		}),
	)
	if err != nil {
		return err
	}

	store.Append(compstore.ReserveProviders, model.ReserveContribution{
		Component: "project_regup",
		Terms: func(in *model.Instance, zone, timepoint string) []model.Term {
			var terms []model.Term
			for _, proj := range in.Set("PROJECTS") {
				if z, ok := in.Lookup("project_zone", proj); !ok || z != zone {
					continue
				}
				terms = append(terms, model.Term{Var: fmt.Sprintf("RegUp[%s]", model.Key(proj, timepoint)), Coef: 1})
			}
			return terms
		},
	})
	store.Append(compstore.CostComponents, model.CostComponent{Component: "regup_cost", Family: "RegUp"})

	m.AddConstraintRule("regup_headroom", func(in *model.Instance) error {
		for _, proj := range in.Set("PROJECTS") {
			existing, _ := in.Param("existing_capacity_mw", proj)
			for _, tp := range in.Set("TIMEPOINTS") {
				name := fmt.Sprintf("regup_headroom[%s]", model.Key(proj, tp))
				terms := []model.Term{
					{Var: fmt.Sprintf("Power[%s]", model.Key(proj, tp)), Coef: 1},
					{Var: fmt.Sprintf("RegUp[%s]", model.Key(proj, tp)), Coef: 1},
					{Var: fmt.Sprintf("Build[%s]", proj), Coef: -1},
				}
				if err := in.AddConstraint(name, terms, model.LessEq, existing); err != nil {
					return err
				}
			}
		}
		return nil
	})

	m.AddConstraintRule("regup_requirement", func(in *model.Instance) error {
		providers := store.Read(compstore.ReserveProviders)
		for _, zone := range in.Set("ZONES") {
			for _, tp := range in.Set("TIMEPOINTS") {
				requirement, _ := in.Param("regup_requirement_mw", model.Key(zone, tp))
				if requirement == 0 {
					continue
				}
				var terms []model.Term
				for _, entry := range providers {
					provider, ok := entry.(model.ReserveContribution)
					if !ok {
						return fmt.Errorf("unexpected entry type %T on channel %s", entry, compstore.ReserveProviders)
					}
					terms = append(terms, provider.Terms(in, zone, tp)...)
				}
				name := fmt.Sprintf("regup_requirement[%s]", model.Key(zone, tp))
				if err := in.AddConstraint(name, terms, model.GreaterEq, requirement); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return nil
}

// LoadData reads the per-(zone, timepoint) requirement.
func (r *RegUp) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	rows, err := src.Rows(ctx, subproblem, stage, "regup_requirement")
	if err != nil {
		return err
	}
	for _, row := range rows {
		if mw, ok := row.Attrs["mw"]; ok {
			if err := m.SetParam("regup_requirement_mw", row.Key, mw); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportResults writes per-(project, timepoint) provision.
func (r *RegUp) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	for _, v := range in.FamilyVariables("RegUp") {
		value, _ := res.Value(v.Name)
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: r.Name(),
			Table: "regup_provision", Key: v.Element, Value: value,
		}); err != nil {
			return err
		}
	}
	return nil
}
