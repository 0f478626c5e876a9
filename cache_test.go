package streamjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaCacheRoundTrip(t *testing.T) {
	c, err := newDeltaCache(16)
	require.NoError(t, err)

	_, ok := c.get("Hello", "Hello World")
	assert.False(t, ok)

	c.put("Hello", "Hello World", " World")
	delta, ok := c.get("Hello", "Hello World")
	require.True(t, ok)
	assert.Equal(t, " World", delta)

	stats := c.stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRatio)
}

func TestDeltaCacheKeysDistinguishPairs(t *testing.T) {
	c, err := newDeltaCache(16)
	require.NoError(t, err)

	// Same concatenation, different split points.
	c.put("ab", "cd", "cd")
	_, ok := c.get("a", "bcd")
	assert.False(t, ok, "old/new boundary must be part of the key")
}

func TestDeltaCacheEviction(t *testing.T) {
	c, err := newDeltaCache(2)
	require.NoError(t, err)

	c.put("a", "a1", "1")
	c.put("b", "b2", "2")
	c.put("c", "c3", "3")

	assert.Equal(t, int64(1), c.stats().Evictions)
	assert.Equal(t, 2, c.stats().Size)
}

func TestMatchCacheFingerprintIsolation(t *testing.T) {
	c, err := newMatchCache(16)
	require.NoError(t, err)

	fpA := patternFingerprint([]string{"users.*"})
	fpB := patternFingerprint([]string{"admin.*"})
	require.NotEqual(t, fpA, fpB)

	c.put("users[0].name", fpA, true)

	matched, ok := c.get("users[0].name", fpA)
	require.True(t, ok)
	assert.True(t, matched)

	_, ok = c.get("users[0].name", fpB)
	assert.False(t, ok, "a different pattern set must not see cached results")
}

func TestPatternFingerprintDeterministic(t *testing.T) {
	a := patternFingerprint([]string{"x", "y"})
	b := patternFingerprint([]string{"x", "y"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, patternFingerprint(nil), a)
}
