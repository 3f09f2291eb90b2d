// Package txcarbon accounts for the emissions embedded in transmitted
// power: line flows carry an import emission rate that joins the
// system-wide cap. It needs both the transmission structure and the
// carbon policy, so it is gated on the conjunction of the two features
// and ordered after both.
package txcarbon

import (
	"context"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/registry"
	"github.com/vk/gridplan/internal/solver"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register installs the txcarbon descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "txcarbon",
		Category: registry.CategoryCrossFeature,
		Requires: []string{features.Transmission, features.CarbonCap},
		Position: 210,
	}, func() capability.Capability { return &TxCarbon{} })
}

// TxCarbon is the loaded capability object.
type TxCarbon struct{}

// Name implements capability.Capability.
func (t *TxCarbon) Name() string { return "txcarbon" }

// DefineStructure declares the import emission rate and publishes line
// flows as an emission source. The carbon cap module, ordered earlier in
// the catalog, consumes the channel when its rule runs at instantiation,
// after every append here has happened.
func (t *TxCarbon) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	if err := m.AddParamDefault("import_emission_rate", "LINES", 0); err != nil {
		return err
	}
	store.Append(compstore.EmissionSources, model.EmissionSource{
		Component: "transmission_imports",
		Terms: func(in *model.Instance) []model.Term {
			var terms []model.Term
			for _, line := range in.Set("LINES") {
				rate, _ := in.Param("import_emission_rate", line)
				if rate == 0 {
					continue
				}
				for _, tp := range in.Set("TIMEPOINTS") {
					weight, _ := in.Param("timepoint_weight", tp)
					terms = append(terms, model.Term{
						Var:  "Flow[" + model.Key(line, tp) + "]",
						Coef: rate * weight,
					})
				}
			}
			return terms
		},
	})
	return nil
}

// LoadData reads import emission rates off the line roster.
func (t *TxCarbon) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	lines, err := src.Rows(ctx, subproblem, stage, "transmission_lines")
	if err != nil {
		return err
	}
	for _, line := range lines {
		if rate, ok := line.Attrs["import_emission_rate"]; ok {
			if err := m.SetParam("import_emission_rate", line.Key, rate); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportResults writes total imported emissions.
func (t *TxCarbon) ExportResults(ctx context.Context, in *model.Instance, res *solver.Result,
	sink capability.OutputSink, subproblem string, stage int) error {

	var total float64
	for _, line := range in.Set("LINES") {
		rate, _ := in.Param("import_emission_rate", line)
		if rate == 0 {
			continue
		}
		for _, tp := range in.Set("TIMEPOINTS") {
			weight, _ := in.Param("timepoint_weight", tp)
			flow, _ := res.Value("Flow[" + model.Key(line, tp) + "]")
			total += rate * weight * flow
		}
	}
	return sink.WriteResult(ctx, capability.ResultRow{
		Subproblem: subproblem, Stage: stage, Module: t.Name(),
		Table: "emissions", Key: "import_tons", Value: total,
	})
}
