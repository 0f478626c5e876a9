package streamjson

import (
	"log/slog"
	"time"
)

// Config controls a Parser instance. Zero values are corrected to defaults
// by Validate; construct with DefaultConfig and override as needed.
type Config struct {
	// Buffering
	BufferSize   int   `json:"buffer_size"`    // Per-session chunk buffer bound in bytes
	MaxChunkSize int64 `json:"max_chunk_size"` // Maximum size of a single chunk
	MaxDepth     int   `json:"max_depth"`      // Maximum traversal depth

	// Completion / repair
	EnableCompletion   bool               `json:"enable_completion"`
	CompletionStrategy CompletionStrategy `json:"completion_strategy"`

	// Diffing
	EnableDiffEngine   bool          `json:"enable_diff_engine"`
	DiffMode           DiffMode      `json:"diff_mode"`
	CoalescingEnabled  bool          `json:"coalescing_enabled"`
	CoalescingWindow   time.Duration `json:"coalescing_window"`
	MaxPendingDiffs    int           `json:"max_pending_diffs"`
	StabilityThreshold int           `json:"stability_threshold"`

	// Adaptive timeout
	AdaptiveTimeoutEnabled bool          `json:"adaptive_timeout_enabled"`
	ChunkTimeout           time.Duration `json:"chunk_timeout"`
	MaxTimeout             time.Duration `json:"max_timeout"`
	BackoffFactor          float64       `json:"backoff_factor"`
	SuccessDecay           float64       `json:"success_decay"`

	// Caches
	EnableCaches   bool `json:"enable_caches"`
	DeltaCacheSize int  `json:"delta_cache_size"`
	MatchCacheSize int  `json:"match_cache_size"`

	// Filtering
	FieldFilter *FieldFilter `json:"-"`

	// External collaborators
	Validator PathValidator  `json:"-"` // Optional schema validation hook
	Tracker   SessionTracker `json:"-"` // Optional session lifecycle tracker
	Logger    *slog.Logger   `json:"-"` // Callback/sweep diagnostics; nil uses slog.Default
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:             DefaultBufferSize,
		MaxChunkSize:           DefaultMaxChunkSize,
		MaxDepth:               DefaultMaxDepth,
		EnableCompletion:       true,
		CompletionStrategy:     StrategySmart,
		EnableDiffEngine:       true,
		DiffMode:               DiffSmart,
		CoalescingEnabled:      true,
		CoalescingWindow:       DefaultCoalescingWindow,
		MaxPendingDiffs:        DefaultMaxPendingDiffs,
		StabilityThreshold:     DefaultStabilityThreshold,
		AdaptiveTimeoutEnabled: true,
		ChunkTimeout:           DefaultChunkTimeout,
		MaxTimeout:             DefaultMaxTimeout,
		BackoffFactor:          DefaultBackoffFactor,
		SuccessDecay:           DefaultSuccessDecay,
		EnableCaches:           true,
		DeltaCacheSize:         DefaultDeltaCacheSize,
		MatchCacheSize:         DefaultMatchCacheSize,
	}
}

// LowLatencyConfig returns a configuration tuned for interactive streams:
// no coalescing delay and a tight base timeout.
func LowLatencyConfig() *Config {
	config := DefaultConfig()
	config.CoalescingEnabled = false
	config.ChunkTimeout = 2 * time.Second
	config.MaxTimeout = 10 * time.Second
	return config
}

// LargeStreamConfig returns a configuration sized for large documents.
func LargeStreamConfig() *Config {
	config := DefaultConfig()
	config.BufferSize = 1024 * 1024
	config.MaxDepth = 200
	config.DeltaCacheSize = 8192
	config.MatchCacheSize = 8192
	return config
}

// Validate checks configuration values and applies corrections in place.
func (c *Config) Validate() error {
	if c == nil {
		return newValidationError("validate_config", "", "config cannot be nil")
	}
	if c.BufferSize < 0 || c.BufferSize > MaxBufferSize {
		return newValidationError("validate_config", "", "BufferSize out of range")
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.BufferSize < MinBufferSize {
		c.BufferSize = MinBufferSize
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	switch c.CompletionStrategy {
	case StrategyConservative, StrategySmart, StrategyAggressive:
	case "":
		c.CompletionStrategy = StrategySmart
	default:
		return newValidationError("validate_config", "", "unknown completion strategy: "+string(c.CompletionStrategy))
	}
	switch c.DiffMode {
	case DiffConservative, DiffSmart:
	case "":
		c.DiffMode = DiffSmart
	default:
		return newValidationError("validate_config", "", "unknown diff mode: "+string(c.DiffMode))
	}
	if c.CoalescingWindow <= 0 {
		c.CoalescingWindow = DefaultCoalescingWindow
	}
	if c.MaxPendingDiffs <= 0 {
		c.MaxPendingDiffs = DefaultMaxPendingDiffs
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = DefaultStabilityThreshold
	}
	if c.ChunkTimeout <= 0 {
		c.ChunkTimeout = DefaultChunkTimeout
	}
	if c.MaxTimeout < c.ChunkTimeout {
		c.MaxTimeout = DefaultMaxTimeout
	}
	if c.BackoffFactor <= 1.0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.SuccessDecay <= 0 || c.SuccessDecay >= 1.0 {
		c.SuccessDecay = DefaultSuccessDecay
	}
	if c.DeltaCacheSize <= 0 {
		c.DeltaCacheSize = DefaultDeltaCacheSize
	}
	if c.MatchCacheSize <= 0 {
		c.MatchCacheSize = DefaultMatchCacheSize
	}
	return nil
}

// Clone returns a deep copy of the configuration. Collaborator references
// (FieldFilter, Validator, Tracker, Logger) are shared, not copied.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	clone := *c
	return &clone
}

// logger returns the configured logger or the process default.
func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
