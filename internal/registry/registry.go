// Package registry provides the static catalog of capability modules, the
// feature resolver that turns a feature configuration into the ordered
// module list for a run, and the loader that resolves identifiers to
// capability objects.
//
// The catalog's total order is a design invariant, not something computed
// per run: core descriptors first in a hand-curated sequence reflecting
// producer/consumer relationships, then single-feature descriptors, then
// cross-feature descriptors last. Any active module may therefore assume
// all of its structural dependencies were asked to contribute before it.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/features"
)

// Category partitions the catalog.
type Category int

const (
	// CategoryCore modules are always active.
	CategoryCore Category = iota
	// CategorySingleFeature modules are gated on one feature flag.
	CategorySingleFeature
	// CategoryCrossFeature modules are gated on the conjunction of two or
	// more feature flags.
	CategoryCrossFeature
)

func (c Category) String() string {
	switch c {
	case CategoryCore:
		return "core"
	case CategorySingleFeature:
		return "single-feature"
	case CategoryCrossFeature:
		return "cross-feature"
	}
	return "unknown"
}

// Descriptor is the static catalog entry for one capability module. It is
// defined when the registry is built and never mutated at run time.
type Descriptor struct {
	Name     string
	Category Category
	// Requires lists the governing feature flags: empty for core, one for
	// single-feature, two or more for cross-feature. Gating is pure AND.
	Requires []string
	// Position orders the descriptor within its category.
	Position int
}

// ActiveFor evaluates the descriptor's governing predicate.
func (d Descriptor) ActiveFor(f features.Config) bool {
	for _, flag := range d.Requires {
		if !f.Enabled(flag) {
			return false
		}
	}
	return true
}

// Factory builds a fresh capability object for a module.
type Factory func() capability.Capability

// Module is the interface a capability package implements to install
// itself into a registry.
type Module interface {
	Register(r *Registry)
}

// Registry is the immutable-once-built module catalog for one application
// instance.
type Registry struct {
	descriptors []Descriptor
	factories   map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Add installs a descriptor and its factory. Registering the same name
// twice is a programmer error.
func (r *Registry) Add(d Descriptor, f Factory) {
	if _, exists := r.factories[d.Name]; exists {
		panic(fmt.Sprintf("module %q already registered", d.Name))
	}
	if d.Category == CategoryCore && len(d.Requires) > 0 {
		panic(fmt.Sprintf("core module %q must not declare governing flags", d.Name))
	}
	if d.Category == CategorySingleFeature && len(d.Requires) != 1 {
		panic(fmt.Sprintf("single-feature module %q must declare exactly one governing flag", d.Name))
	}
	if d.Category == CategoryCrossFeature && len(d.Requires) < 2 {
		panic(fmt.Sprintf("cross-feature module %q must declare at least two governing flags", d.Name))
	}
	slog.Debug("Registering capability module.", "name", d.Name, "category", d.Category.String())
	r.descriptors = append(r.descriptors, d)
	r.factories[d.Name] = f
}

// All returns every descriptor in the catalog's total order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Core returns the core partition in catalog order.
func (r *Registry) Core() []Descriptor { return r.partition(CategoryCore) }

// Optional returns the single-feature partition in catalog order.
func (r *Registry) Optional() []Descriptor { return r.partition(CategorySingleFeature) }

// CrossFeature returns the cross-feature partition in catalog order.
func (r *Registry) CrossFeature() []Descriptor { return r.partition(CategoryCrossFeature) }

func (r *Registry) partition(c Category) []Descriptor {
	var out []Descriptor
	for _, d := range r.All() {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}
