// Package transmission contributes directed transport between zones:
// lines, their flow decisions, and the flow limits. Active only when the
// transmission feature is enabled.
package transmission

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

// Register installs the transmission descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "transmission",
		Category: registry.CategorySingleFeature,
		Requires: []string{features.Transmission},
		Position: 110,
	}, func() capability.Capability { return &Transmission{} })
}

// Transmission is the loaded capability object.
type Transmission struct{}

// Name implements capability.Capability.
func (t *Transmission) Name() string { return "transmission" }

// DefineStructure declares lines, flows, and the flow limit rule, and
// publishes line flows into the balance of both endpoint zones.
func (t *Transmission) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	err := errors.Join(
		m.AddSet("LINES"),
		m.AddSet("LINE_TIMEPOINTS"),
		m.AddLookup("line_from"),
		m.AddLookup("line_to"),
		m.AddParam("line_capacity_mw", "LINES"),
		m.AddParamDefault("hurdle_cost", "LINE_TIMEPOINTS", 0),
		m.AddVariables("Flow", "LINE_TIMEPOINTS", model.VarOpts{
			Upper:     model.Inf,
			CostParam: "hurdle_cost",
		}),
	)
	if err != nil {
		return err
	}

	m.AddConstraintRule("flow_limit", func(in *model.Instance) error {
		for _, line := range in.Set("LINES") {
			capacity, _ := in.Param("line_capacity_mw", line)
			for _, tp := range in.Set("TIMEPOINTS") {
				name := fmt.Sprintf("flow_limit[%s]", model.Key(line, tp))
				terms := []model.Term{{Var: fmt.Sprintf("Flow[%s]", model.Key(line, tp)), Coef: 1}}
				if err := in.AddConstraint(name, terms, model.LessEq, capacity); err != nil {
					return err
				}
			}
		}
		return nil
	})

	store.Append(compstore.CostComponents, model.CostComponent{Component: "hurdle_cost", Family: "Flow"})
	store.Append(compstore.PowerProduction, model.BalanceContribution{
		Component: "transmission_flow",
		Terms: func(in *model.Instance, zone, timepoint string) []model.Term {
			var terms []model.Term
			for _, line := range in.Set("LINES") {
				flow := fmt.Sprintf("Flow[%s]", model.Key(line, timepoint))
				if to, ok := in.Lookup("line_to", line); ok && to == zone {
					terms = append(terms, model.Term{Var: flow, Coef: 1})
				}
				if from, ok := in.Lookup("line_from", line); ok && from == zone {
					terms = append(terms, model.Term{Var: flow, Coef: -1})
				}
			}
			return terms
		},
	})
	return nil
}

// LoadData reads the line roster and endpoint relations. Endpoint tables
// use composite "<line>.<zone>" keys.
func (t *Transmission) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	lines, err := src.Rows(ctx, subproblem, stage, "transmission_lines")
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := m.AddSetMembers("LINES", line.Key); err != nil {
			return err
		}
		if capacity, ok := line.Attrs["capacity_mw"]; ok {
			if err := m.SetParam("line_capacity_mw", line.Key, capacity); err != nil {
				return err
			}
		}
		for _, tp := range m.Set("TIMEPOINTS") {
			key := model.Key(line.Key, tp)
			if err := m.AddSetMembers("LINE_TIMEPOINTS", key); err != nil {
				return err
			}
			if hurdle, ok := line.Attrs["hurdle_rate"]; ok {
				if err := m.SetParam("hurdle_cost", key, hurdle); err != nil {
					return err
				}
			}
		}
	}

	for _, relation := range []struct{ table, lookup string }{
		{"line_from_zone", "line_from"},
		{"line_to_zone", "line_to"},
	} {
		rows, err := src.Rows(ctx, subproblem, stage, relation.table)
		if err != nil {
			return err
		}
		for _, row := range rows {
			line, zone, ok := strings.Cut(row.Key, ".")
			if !ok {
				return fmt.Errorf("%s key %q is not <line>.<zone>", relation.table, row.Key)
			}
			if err := m.SetLookup(relation.lookup, line, zone); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportResults writes per-(line, timepoint) flows.
func (t *Transmission) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	for _, v := range in.FamilyVariables("Flow") {
		value, _ := res.Value(v.Name)
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: t.Name(),
			Table: "transmission_flow", Key: v.Element, Value: value,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInputs checks the line roster.
func (t *Transmission) ValidateInputs(ctx context.Context, src capability.InputSource,
	subproblem string, stage int) ([]capability.Finding, error) {

	lines, err := src.Rows(ctx, subproblem, stage, "transmission_lines")
	if err != nil {
		return nil, err
	}
	var findings []capability.Finding
	for _, line := range lines {
		if capacity, ok := line.Attrs["capacity_mw"]; ok && capacity < 0 {
			findings = append(findings, capability.Finding{
				Severity: capability.SeverityError,
				Table:    "transmission_lines",
				Message:  fmt.Sprintf("line %s has negative capacity_mw", line.Key),
			})
		}
	}
	return findings, nil
}
