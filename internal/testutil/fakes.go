package testutil

import (
	"context"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/compstore"
	"github.com/vk/gridplan/internal/features"
	"github.com/vk/gridplan/internal/model"
	"github.com/vk/gridplan/internal/registry"
)

// FakeCapability is a configurable capability for registry and pipeline
// tests. Only the hooks with a non-nil func are exposed through the
// optional interfaces.
type FakeCapability struct {
	CapName     string
	OnStructure func(ctx context.Context, m *model.Model, store *compstore.Scope, f features.Config) error
}

// Name implements capability.Capability.
func (f *FakeCapability) Name() string { return f.CapName }

// DefineStructure implements capability.StructureDefiner.
func (f *FakeCapability) DefineStructure(ctx context.Context, m *model.Model, store *compstore.Scope, cfg features.Config) error {
	if f.OnStructure == nil {
		return nil
	}
	return f.OnStructure(ctx, m, store, cfg)
}

// RegisterFake installs a fake descriptor with a no-op capability.
func RegisterFake(r *registry.Registry, name string, category registry.Category, requires []string, position int) {
	r.Add(registry.Descriptor{
		Name:     name,
		Category: category,
		Requires: requires,
		Position: position,
	}, func() capability.Capability { return &FakeCapability{CapName: name} })
}
