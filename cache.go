package streamjson

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Internal memoization caches. Pure performance layer: every lookup has a
// recompute fallback, so cache state never affects correctness. Both caches
// are bounded LRUs safe for concurrent use and owned per Parser instance.

// deltaCache memoizes string-diff computations keyed by the (old, new)
// value pair.
type deltaCache struct {
	entries   *lru.Cache[uint64, string]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func newDeltaCache(size int) (*deltaCache, error) {
	c := &deltaCache{}
	entries, err := lru.NewWithEvict[uint64, string](size, func(uint64, string) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, WrapError(err, "new_delta_cache", "invalid cache size")
	}
	c.entries = entries
	return c, nil
}

func deltaCacheKey(oldValue, newValue string) uint64 {
	var d xxhash.Digest
	d.WriteString(oldValue)
	d.WriteString("\x00")
	d.WriteString(newValue)
	return d.Sum64()
}

func (c *deltaCache) get(oldValue, newValue string) (string, bool) {
	delta, ok := c.entries.Get(deltaCacheKey(oldValue, newValue))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return delta, ok
}

func (c *deltaCache) put(oldValue, newValue, delta string) {
	c.entries.Add(deltaCacheKey(oldValue, newValue), delta)
}

func (c *deltaCache) stats() CacheStats {
	return cacheStats(c.hits.Load(), c.misses.Load(), c.evictions.Load(), c.entries.Len())
}

// matchCache memoizes path-pattern match decisions keyed by the path and a
// fingerprint of the pattern set.
type matchCache struct {
	entries   *lru.Cache[uint64, bool]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func newMatchCache(size int) (*matchCache, error) {
	c := &matchCache{}
	entries, err := lru.NewWithEvict[uint64, bool](size, func(uint64, bool) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, WrapError(err, "new_match_cache", "invalid cache size")
	}
	c.entries = entries
	return c, nil
}

// patternFingerprint hashes a pattern list once at filter construction so
// per-path lookups only hash the path itself.
func patternFingerprint(patterns []string) uint64 {
	var d xxhash.Digest
	for _, p := range patterns {
		d.WriteString(p)
		d.WriteString("\x00")
	}
	return d.Sum64()
}

func matchCacheKey(path string, fingerprint uint64) uint64 {
	var d xxhash.Digest
	d.WriteString(path)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(fingerprint >> (8 * i))
	}
	d.Write(buf[:])
	return d.Sum64()
}

func (c *matchCache) get(path string, fingerprint uint64) (bool, bool) {
	matched, ok := c.entries.Get(matchCacheKey(path, fingerprint))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return matched, ok
}

func (c *matchCache) put(path string, fingerprint uint64, matched bool) {
	c.entries.Add(matchCacheKey(path, fingerprint), matched)
}

func (c *matchCache) stats() CacheStats {
	return cacheStats(c.hits.Load(), c.misses.Load(), c.evictions.Load(), c.entries.Len())
}

func cacheStats(hits, misses, evictions int64, size int) CacheStats {
	total := hits + misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return CacheStats{
		Hits:      hits,
		Misses:    misses,
		Evictions: evictions,
		Size:      size,
		HitRatio:  ratio,
	}
}
