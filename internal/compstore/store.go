// Package compstore provides the dynamic component store: a per-build
// registry of named, append-only channels that capability modules use to
// publish and consume cross-cutting structures without knowing about each
// other.
//
// A Scope lives for exactly one (subproblem, stage) build. Channels are
// created lazily on first access so a consumer can read a channel no
// producer happened to populate (it is simply empty). Append is the only
// mutation: entries are never removed or reordered, and Read returns them
// in append order for every consumer.
package compstore

import (
	"sort"
	"sync"
)

// Well-known channel names shared by the built-in capability modules.
// A module may also invent its own channel; nothing here is enforced.
const (
	CostComponents   = "cost-components"
	PowerProduction  = "power-production"
	EmissionSources  = "emission-sources"
	ReserveProviders = "reserve-providers"
	CapacityTypes    = "capacity-types"
)

// Scope is a dynamic component store scoped to a single build.
type Scope struct {
	mu       sync.Mutex
	channels map[string][]any
}

// NewScope creates an empty store for one (subproblem, stage) build.
func NewScope() *Scope {
	return &Scope{channels: make(map[string][]any)}
}

// Append adds an entry to the end of the named channel, creating the
// channel if this is its first use.
func (s *Scope) Append(channel string, entry any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[channel] = append(s.channels[channel], entry)
}

// Read returns a snapshot of the named channel in append order. The
// returned slice is a copy; a channel that was never written reads as
// empty, not as an error.
func (s *Scope) Read(channel string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.channels[channel]
	snapshot := make([]any, len(entries))
	copy(snapshot, entries)
	return snapshot
}

// Len reports the number of entries in the named channel.
func (s *Scope) Len(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels[channel])
}

// Channels returns the sorted names of every channel that has been
// touched, for diagnostics.
func (s *Scope) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
