// Package geography contributes the spatial and temporal skeleton of the
// problem: balancing zones, timepoints, and the demand to serve. Every
// other module indexes against the sets declared here, which is why
// geography sits first in the core ordering.
package geography

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register installs the geography descriptor into the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Add(registry.Descriptor{
		Name:     "geography",
		Category: registry.CategoryCore,
		Position: 10,
	}, func() capability.Capability { return &Geography{} })
}

// Geography is the loaded capability object. It is stateless: all build
// state lives in the model passed to each hook.
type Geography struct{}

// Name implements capability.Capability.
func (g *Geography) Name() string { return "geography" }

// DefineStructure declares the zone and timepoint sets and the demand
// parameter.
func (g *Geography) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error {
	return errors.Join(
		m.AddSet("ZONES"),
		m.AddSet("TIMEPOINTS"),
		m.AddSet("ZONE_TIMEPOINTS"),
		m.AddParam("timepoint_weight", "TIMEPOINTS"),
		m.AddParam("demand_mw", "ZONE_TIMEPOINTS"),
	)
}

// LoadData populates the sets from the input source and expands the
// zone-timepoint product.
func (g *Geography) LoadData(ctx context.Context, m *model.Model, store *compstore.Scope,
	src capability.InputSource, subproblem string, stage int) error {

	zones, err := src.Rows(ctx, subproblem, stage, "load_zones")
	if err != nil {
		return err
	}
	for _, z := range zones {
		if err := m.AddSetMembers("ZONES", z.Key); err != nil {
			return err
		}
	}

	timepoints, err := src.Rows(ctx, subproblem, stage, "timepoints")
	if err != nil {
		return err
	}
	for _, tp := range timepoints {
		if err := m.AddSetMembers("TIMEPOINTS", tp.Key); err != nil {
			return err
		}
		if weight, ok := tp.Attrs["weight"]; ok {
			if err := m.SetParam("timepoint_weight", tp.Key, weight); err != nil {
				return err
			}
		}
	}

	for _, z := range zones {
		for _, tp := range timepoints {
			if err := m.AddSetMembers("ZONE_TIMEPOINTS", model.Key(z.Key, tp.Key)); err != nil {
				return err
			}
		}
	}

	demand, err := src.Rows(ctx, subproblem, stage, "demand")
	if err != nil {
		return err
	}
	for _, row := range demand {
		if mw, ok := row.Attrs["mw"]; ok {
			if err := m.SetParam("demand_mw", row.Key, mw); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateInputs checks the spatial/temporal tables for obvious problems.
func (g *Geography) ValidateInputs(ctx context.Context, src capability.InputSource,
	subproblem string, stage int) ([]capability.Finding, error) {

	var findings []capability.Finding
	zones, err := src.Rows(ctx, subproblem, stage, "load_zones")
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		findings = append(findings, capability.Finding{
			Severity: capability.SeverityError,
			Table:    "load_zones",
			Message:  "no load zones defined",
		})
	}

	timepoints, err := src.Rows(ctx, subproblem, stage, "timepoints")
	if err != nil {
		return nil, err
	}
	if len(timepoints) == 0 {
		findings = append(findings, capability.Finding{
			Severity: capability.SeverityError,
			Table:    "timepoints",
			Message:  "no timepoints defined",
		})
	}

	demand, err := src.Rows(ctx, subproblem, stage, "demand")
	if err != nil {
		return nil, err
	}
	for _, row := range demand {
		if mw, ok := row.Attrs["mw"]; ok && mw < 0 {
			findings = append(findings, capability.Finding{
				Severity: capability.SeverityWarning,
				Table:    "demand",
				Message:  fmt.Sprintf("negative demand %.2f MW at %s", mw, row.Key),
			})
		}
	}
	return findings, nil
}
