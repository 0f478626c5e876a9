package streamjson

import "time"

const (
	// Buffer sizes
	DefaultBufferSize = 8192
	MinBufferSize     = 256
	MaxBufferSize     = 10 * 1024 * 1024

	// Cache sizes
	DefaultDeltaCacheSize = 1024
	DefaultMatchCacheSize = 2048

	// Chunk limits
	DefaultMaxChunkSize = 10 * 1024 * 1024
	DefaultMaxDepth     = 50

	// Adaptive timeout tuning
	DefaultChunkTimeout    = 5 * time.Second
	DefaultMaxTimeout      = 30 * time.Second
	DefaultBackoffFactor   = 1.5
	DefaultSuccessDecay    = 0.9
	SuccessStreakThreshold = 3

	// Event coalescing
	DefaultCoalescingWindow = 100 * time.Millisecond
	DefaultMaxPendingDiffs  = 16

	// Stability: consecutive unchanged diff computations before a
	// container path is eligible for a DONE event.
	DefaultStabilityThreshold = 2

	// Completion heuristic: strings shorter than this that do not end in a
	// continuation character are considered complete.
	ShortStringCompleteLen = 50

	// Session tracking
	DefaultMaxSessions    = 1000
	DefaultSessionIdleTTL = time.Hour
	DefaultSweepInterval  = 5 * time.Minute

	// MaxSessionErrors bounds the per-session error list; the oldest
	// entry is dropped once the bound is reached.
	MaxSessionErrors = 64
)

// Error codes for machine-readable error identification
const (
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeParsing        = "ERR_PARSING"
	ErrCodeBufferOverflow = "ERR_BUFFER_OVERFLOW"
	ErrCodeTimeout        = "ERR_TIMEOUT"
	ErrCodeFieldFiltering = "ERR_FIELD_FILTERING"
	ErrCodeSessionClosed  = "ERR_SESSION_CLOSED"
)

// Terminal punctuation that marks a streamed string value as complete,
// including full-width equivalents and closing delimiters.
var terminalRunes = map[rune]struct{}{
	'.': {}, '!': {}, '?': {},
	'。': {}, '！': {}, '？': {},
	'"': {}, '\'': {}, '}': {}, ']': {},
}

// Continuation characters: a short string ending in one of these is still
// considered partial.
var continuationRunes = map[rune]struct{}{
	',': {}, '\n': {}, '\t': {},
}
