// Package features holds the per-run feature toggle set. A feature is a
// named boolean capability switch; the set is fixed before module
// resolution begins and never mutated afterwards.
package features

import "sort"

// Recognized feature names. Unrecognized keys in a scenario file are
// ignored; missing keys default to false.
const (
	Transmission = "transmission"
	CarbonCap    = "carbon_cap"
	RegulationUp = "regulation_up"
)

// Config is an immutable feature configuration. The zero value has every
// feature disabled.
type Config struct {
	flags map[string]bool
}

// New builds a Config from a flag map. The map is copied, so later
// mutation of the argument does not leak into the Config.
func New(flags map[string]bool) Config {
	copied := make(map[string]bool, len(flags))
	for name, on := range flags {
		copied[name] = on
	}
	return Config{flags: copied}
}

// Enabled reports whether the named feature is switched on. Unknown or
// missing features are off.
func (c Config) Enabled(name string) bool {
	return c.flags[name]
}

// EnabledNames returns the sorted list of features that are switched on,
// for logging and diagnostics.
func (c Config) EnabledNames() []string {
	var names []string
	for name, on := range c.flags {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
