package compstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/gridplan/internal/compstore"
)

func TestChannelIsCreatedLazily(t *testing.T) {
	s := compstore.NewScope()
	assert.Empty(t, s.Channels())
	assert.Equal(t, 0, s.Len("never-written"))
	assert.Empty(t, s.Read("never-written"))

	s.Append("cost-components", "x")
	assert.Equal(t, []string{"cost-components"}, s.Channels())
}

func TestAppendPreservesOrder(t *testing.T) {
	s := compstore.NewScope()
	s.Append("ch", "x")
	s.Append("ch", "y")
	s.Append("ch", "z")

	require.Equal(t, 3, s.Len("ch"))
	assert.Equal(t, []any{"x", "y", "z"}, s.Read("ch"))
}

func TestChannelsAreIndependent(t *testing.T) {
	s := compstore.NewScope()
	s.Append("a", 1)
	s.Append("b", 2)
	s.Append("a", 3)

	assert.Equal(t, []any{1, 3}, s.Read("a"))
	assert.Equal(t, []any{2}, s.Read("b"))
}

func TestScopesAreIsolated(t *testing.T) {
	first := compstore.NewScope()
	second := compstore.NewScope()
	first.Append("ch", "only-in-first")

	assert.Equal(t, 0, second.Len("ch"))
	assert.Empty(t, second.Channels())
}

func TestReadReturnsSnapshot(t *testing.T) {
	s := compstore.NewScope()
	s.Append("ch", "x")

	snap := s.Read("ch")
	snap[0] = "mutated"
	s.Append("ch", "y")

	assert.Equal(t, []any{"x", "y"}, s.Read("ch"))
}

func TestChannelsListIsSorted(t *testing.T) {
	s := compstore.NewScope()
	s.Append("zeta", 1)
	s.Append("alpha", 1)
	s.Append("mid", 1)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.Channels())
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	s := compstore.NewScope()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				s.Append("ch", n)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, 400, s.Len("ch"))
}
