package registry

import (
	"context"
	"fmt"

	"github.com/vk/gridplan/internal/capability"
	"github.com/vk/gridplan/internal/ctxlog"
	"github.com/vk/gridplan/internal/features"
)

// DetermineModules resolves a feature configuration into the ordered list
// of module identifiers active for a run. It walks the catalog's total
// order exactly once; the result is deterministic for a given
// configuration.
//
// A cross-feature module whose governing flags are not all enabled is
// silently excluded. A flag with no corresponding optional module is not
// an error either: flags may also gate behavior inside core modules.
func (r *Registry) DetermineModules(ctx context.Context, f features.Config) []string {
	logger := ctxlog.FromContext(ctx)
	var active []string
	for _, d := range r.All() {
		if !d.ActiveFor(f) {
			logger.Debug("Module inactive for feature configuration.",
				"module", d.Name, "requires", d.Requires)
			continue
		}
		active = append(active, d.Name)
	}
	logger.Debug("Feature resolution complete.",
		"features", f.EnabledNames(), "modules", active)
	return active
}

// ResolutionError reports a module identifier that did not resolve to a
// registered capability. It is fatal: the run aborts before any model
// assembly begins.
type ResolutionError struct {
	Module string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("module %q does not resolve to a registered capability", e.Module)
}

// Load resolves an ordered identifier list into capability objects.
// Loading is all-or-nothing: the first unresolvable identifier aborts
// with a ResolutionError and nothing is returned.
func (r *Registry) Load(ctx context.Context, names []string) ([]capability.Capability, error) {
	logger := ctxlog.FromContext(ctx)
	caps := make([]capability.Capability, 0, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, &ResolutionError{Module: name}
		}
		cap := factory()
		if cap.Name() != name {
			return nil, fmt.Errorf("module %q: factory produced capability named %q", name, cap.Name())
		}
		caps = append(caps, cap)
	}
	logger.Info("Capability modules loaded.", "count", len(caps))
	return caps, nil
}
