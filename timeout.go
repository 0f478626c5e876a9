package streamjson

import (
	"sync"
	"time"
)

// adaptiveTimeout adjusts the per-chunk deadline from observed behavior:
// timeouts back the deadline off multiplicatively, and a sustained success
// streak decays it back toward the configured base.
type adaptiveTimeout struct {
	mu sync.Mutex

	base    time.Duration
	max     time.Duration
	backoff float64
	decay   float64

	current  time.Duration
	streak   int
	timeouts int64
}

func newAdaptiveTimeout(base, max time.Duration, backoff, decay float64) *adaptiveTimeout {
	if base <= 0 {
		base = DefaultChunkTimeout
	}
	if max < base {
		max = DefaultMaxTimeout
	}
	if backoff <= 1 {
		backoff = DefaultBackoffFactor
	}
	if decay <= 0 || decay >= 1 {
		decay = DefaultSuccessDecay
	}
	return &adaptiveTimeout{
		base:    base,
		max:     max,
		backoff: backoff,
		decay:   decay,
		current: base,
	}
}

// timeout returns the current deadline.
func (a *adaptiveTimeout) timeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// recordSuccess notes a chunk processed within the deadline. After more
// than SuccessStreakThreshold consecutive successes the deadline shrinks
// by the decay factor, never below base.
func (a *adaptiveTimeout) recordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streak++
	if a.streak > SuccessStreakThreshold {
		decayed := time.Duration(float64(a.current) * a.decay)
		if decayed < a.base {
			decayed = a.base
		}
		a.current = decayed
	}
}

// recordTimeout notes a missed deadline: the streak resets and the
// deadline grows by the backoff factor, capped at max.
func (a *adaptiveTimeout) recordTimeout() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streak = 0
	a.timeouts++
	grown := time.Duration(float64(a.current) * a.backoff)
	if grown > a.max {
		grown = a.max
	}
	a.current = grown
}

// timeoutCount returns how many timeouts have been recorded.
func (a *adaptiveTimeout) timeoutCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeouts
}
