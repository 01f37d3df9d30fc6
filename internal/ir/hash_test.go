package ir

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableIDShape(t *testing.T) {
	id := StableID("step", "Bot/Hello")
	assert.Regexp(t, regexp.MustCompile(`^step_[0-9a-f]{8}$`), id)
}

func TestStableIDDeterministic(t *testing.T) {
	assert.Equal(t, StableID("pattern", "a.b.c"), StableID("pattern", "a.b.c"))
	assert.NotEqual(t, StableID("pattern", "a.b.c"), StableID("pattern", "a.b.d"))
	// Same name, different kind: same hash suffix, different prefix.
	assert.NotEqual(t, StableID("step", "x"), StableID("agent", "x"))
}

func TestEscapeKeyDeterministic(t *testing.T) {
	fragment := Object{
		"agent": String("Bot"),
		"step":  String("Decide"),
		"attributes": Object{
			"branch": String("Hello"),
		},
	}

	k1, err := EscapeKey("pattern_deadbeef", "go", fragment)
	require.NoError(t, err)
	k2, err := EscapeKey("pattern_deadbeef", "go", fragment)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestEscapeKeyCoversAllInputs(t *testing.T) {
	fragment := Object{"step": String("Decide")}

	base := MustEscapeKey("p1", "go", fragment)
	assert.NotEqual(t, base, MustEscapeKey("p2", "go", fragment))
	assert.NotEqual(t, base, MustEscapeKey("p1", "crewai", fragment))
	assert.NotEqual(t, base, MustEscapeKey("p1", "go", Object{"step": String("Other")}))
}

func TestHashDomainSeparation(t *testing.T) {
	// The null byte between domain and payload prevents boundary shifting.
	a := hashWithDomain("stanzaflow/escape", []byte("/v1data"))
	b := hashWithDomain("stanzaflow/escape/v1", []byte("data"))
	assert.NotEqual(t, a, b)
}
