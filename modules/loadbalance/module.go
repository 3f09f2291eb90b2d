// Package loadbalance closes the system: it collects every power
// contribution published on the shared channel and enforces the balance
// between supply and demand per (zone, timepoint). An unserved-energy
// slack keeps a short system feasible at a penalty cost instead of
// failing outright.
package loadbalance

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

// defaultPenalty is the unserved energy cost used when the scenario does
// not seed one.
const defaultPenalty = 10000

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register installs the loadbalance descriptor into the registry. Its
// position is after every producing module so all balance contributions
// are published before the balance is assembled.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "loadbalance",
		Category: registry.CategoryCore,
		Position: 30,
	}, func() capability.Capability { return &LoadBalance{} })
}

// LoadBalance is the loaded capability object.
type LoadBalance struct{}

// Name implements capability.Capability.
func (l *LoadBalance) Name() string { return "loadbalance" }

// DefineStructure declares the unserved-energy slack and the balance
// constraint rule, which reads the power-production channel once all
// contributor modules have appended.
func (l *LoadBalance) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	err := errors.Join(
		m.AddParamDefault("unserved_cost", "ZONE_TIMEPOINTS", defaultPenalty),
		m.AddVariables("Unserved", "ZONE_TIMEPOINTS", model.VarOpts{
			Upper:     model.Inf,
			CostParam: "unserved_cost",
		}),
	)
	if err != nil {
		return err
	}

	store.Append(compstore.CostComponents, model.CostComponent{Component: "unserved_energy_cost", Family: "Unserved"})
	store.Append(compstore.PowerProduction, model.BalanceContribution{
		Component: "unserved_energy",
		Terms: func(in *model.Instance, zone, timepoint string) []model.Term {
			return []model.Term{{Var: fmt.Sprintf("Unserved[%s]", model.Key(zone, timepoint)), Coef: 1}}
		},
	})

	m.AddConstraintRule("load_balance", func(in *model.Instance) error {
		contributions := store.Read(compstore.PowerProduction)
		for _, zone := range in.Set("ZONES") {
			for _, tp := range in.Set("TIMEPOINTS") {
				var terms []model.Term
				for _, entry := range contributions {
					contrib, ok := entry.(model.BalanceContribution)
					if !ok {
						return fmt.Errorf("unexpected entry type %T on channel %s", entry, compstore.PowerProduction)
					}
					terms = append(terms, contrib.Terms(in, zone, tp)...)
				}
				demand, _ := in.Param("demand_mw", model.Key(zone, tp))
				name := fmt.Sprintf("load_balance[%s]", model.Key(zone, tp))
				if err := in.AddConstraint(name, terms, model.Eq, demand); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return nil
}

// LoadData reads the optional unserved-energy penalty and applies it
// across the zone-timepoint product.
func (l *LoadBalance) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	penalty, ok, err := src.Scalar(ctx, subproblem, stage, "system", "unserved_energy_penalty")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	for _, zt := range m.Set("ZONE_TIMEPOINTS") {
		if err := m.SetParam("unserved_cost", zt, penalty); err != nil {
			return err
		}
	}
	return nil
}

// ExportResults writes per-(zone, timepoint) unserved energy.
func (l *LoadBalance) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	for _, v := range in.FamilyVariables("Unserved") {
		value, _ := res.Value(v.Name)
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: l.Name(),
			Table: "unserved_energy", Key: v.Element, Value: value,
		}); err != nil {
			return err
		}
	}
	return nil
}
