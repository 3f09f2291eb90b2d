// Package objective assembles the total-cost objective from whatever
// cost components other modules published. It is the last core module:
// by the time its rule runs, every contributor has already declared its
// families and appended its components.
package objective

import (
	"context"
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

// Register installs the objective descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "objective",
		Category: registry.CategoryCore,
		Position: 40,
	}, func() capability.Capability { return &Objective{} })
}

// Objective is the loaded capability object.
type Objective struct{}

// Name implements capability.Capability.
func (o *Objective) Name() string { return "objective" }

// DefineStructure registers a rule that verifies every announced cost
// component resolves to a declared variable family. The objective itself
// is the cost-weighted sum over all variables, which the solver minimizes
// directly; a dangling component means a module published a family it
// never declared.
func (o *Objective) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	m.AddConstraintRule("objective_components", func(in *model.Instance) error {
		for _, entry := range store.Read(compstore.CostComponents) {
			comp, ok := entry.(model.CostComponent)
			if !ok {
				return fmt.Errorf("unexpected entry type %T on channel %s", entry, compstore.CostComponents)
			}
			if !in.HasFamily(comp.Family) {
				return fmt.Errorf("cost component %q references undeclared family %q", comp.Component, comp.Family)
			}
		}
		return nil
	})
	return nil
}

// ExportResults writes the objective value and a per-family cost
// breakdown.
func (o *Objective) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	if err := sink.WriteResult(ctx, capability.ResultRow{
		Subproblem: subproblem, Stage: stage, Module: o.Name(),
		Table: "objective", Key: "total_cost", Value: res.Objective,
	}); err != nil {
		return err
	}

	byFamily := make(map[string]float64)
	var order []string
	for _, v := range in.Variables() {
		if _, seen := byFamily[v.Family]; !seen {
			order = append(order, v.Family)
		}
		value, _ := res.Value(v.Name)
		byFamily[v.Family] += v.Cost * value
	}
	for _, family := range order {
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: o.Name(),
			Table: "cost_by_family", Key: family, Value: byFamily[family],
		}); err != nil {
			return err
		}
	}
	return nil
}
