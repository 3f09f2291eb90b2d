// Package carboncap enforces a system-wide emissions cap over whatever
// emission sources other modules published. Active only when the
// carbon_cap feature is enabled.
package carboncap

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

// Register installs the carboncap descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "carboncap",
		Category: registry.CategorySingleFeature,
		Requires: []string{features.CarbonCap},
		Position: 120,
	}, func() capability.Capability { return &CarbonCap{} })
}

// CarbonCap is the loaded capability object.
type CarbonCap struct{}

// Name implements capability.Capability.
func (c *CarbonCap) Name() string { return "carboncap" }

// DefineStructure declares the cap parameter and the cap constraint rule.
// The cap has no default: a scenario enabling the feature without seeding
// a cap fails data binding, which is the right failure for a policy run
// with no policy number.
func (c *CarbonCap) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	if err := m.AddScalarParam("carbon_cap_tons"); err != nil {
		return err
	}
	m.AddConstraintRule("carbon_cap", func(in *model.Instance) error {
		var terms []model.Term
		for _, entry := range store.Read(compstore.EmissionSources) {
			source, ok := entry.(model.EmissionSource)
			if !ok {
				return fmt.Errorf("unexpected entry type %T on channel %s", entry, compstore.EmissionSources)
			}
			terms = append(terms, source.Terms(in)...)
		}
		cap, _ := in.Scalar("carbon_cap_tons")
		return in.AddConstraint("carbon_cap", terms, model.LessEq, cap)
	})
	return nil
}

// LoadData reads the cap from the policy table.
func (c *CarbonCap) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	cap, ok, err := src.Scalar(ctx, subproblem, stage, "policy", "carbon_cap_tons")
	if err != nil {
		return err
	}
	if !ok {
		// Leave the parameter unbound so instantiation reports it.
		return nil
	}
	return m.SetScalar("carbon_cap_tons", cap)
}

// ExportResults writes total accounted emissions and the cap. Emissions
// are recovered from the cap constraint's activity at the solution.
func (c *CarbonCap) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	var emissions float64
	for _, con := range in.Constraints() {
		if con.Name != "carbon_cap" {
			continue
		}
		for _, term := range con.Terms {
			value, _ := res.Value(term.Var)
			emissions += term.Coef * value
		}
	}
	cap, _ := in.Scalar("carbon_cap_tons")

	rows := []struct {
		key   string
		value float64
	}{
		{"total_tons", emissions},
		{"cap_tons", cap},
	}
	for _, row := range rows {
		if err := sink.WriteResult(ctx, capability.ResultRow{
			Subproblem: subproblem, Stage: stage, Module: c.Name(),
			Table: "emissions", Key: row.key, Value: row.value,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInputs verifies the cap is seeded and sensible.
func (c *CarbonCap) ValidateInputs(ctx context.Context, src capability.InputSource,
	subproblem string, stage int) ([]capability.Finding, error) {

	cap, ok, err := src.Scalar(ctx, subproblem, stage, "policy", "carbon_cap_tons")
	if err != nil {
		return nil, err
	}
	if !ok {
		return []capability.Finding{{
			Severity: capability.SeverityError,
			Table:    "policy",
			Message:  "carbon_cap feature enabled but policy.carbon_cap_tons is not seeded",
		}}, nil
	}
	if cap < 0 {
		return []capability.Finding{{
			Severity: capability.SeverityError,
			Table:    "policy",
			Message:  fmt.Sprintf("carbon_cap_tons is negative (%.2f)", cap),
		}}, nil
	}
	return nil, nil
}
