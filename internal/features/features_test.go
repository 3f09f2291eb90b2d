package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledDefaultsToFalse(t *testing.T) {
	cfg := New(map[string]bool{Transmission: true})

	assert.True(t, cfg.Enabled(Transmission))
	assert.False(t, cfg.Enabled(CarbonCap))
	assert.False(t, cfg.Enabled("never_heard_of_it"))
}

func TestZeroValueHasEverythingOff(t *testing.T) {
	var cfg Config
	assert.False(t, cfg.Enabled(Transmission))
	assert.Empty(t, cfg.EnabledNames())
}

func TestConfigIsImmutable(t *testing.T) {
	flags := map[string]bool{Transmission: true}
	cfg := New(flags)

	flags[Transmission] = false
	flags[CarbonCap] = true

	assert.True(t, cfg.Enabled(Transmission))
	assert.False(t, cfg.Enabled(CarbonCap))
}

func TestEnabledNamesAreSorted(t *testing.T) {
	cfg := New(map[string]bool{
		RegulationUp: true,
		Transmission: true,
		CarbonCap:    true,
		"disabled":   false,
	})
	assert.Equal(t, []string{CarbonCap, RegulationUp, Transmission}, cfg.EnabledNames())
}
