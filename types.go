package streamjson

import "time"

// EventType identifies the kind of streaming event.
type EventType string

const (
	EventDelta    EventType = "delta"    // Incremental field update
	EventDone     EventType = "done"     // Field value is stable/complete
	EventError    EventType = "error"    // Parsing, timeout, or validation failure
	EventStart    EventType = "start"    // Session opened
	EventFinish   EventType = "finish"   // Session finalized
	EventProgress EventType = "progress" // Periodic progress notification
)

// Event is an immutable streaming event. Events for one session carry
// strictly increasing sequence numbers; consumers may rely on per-session
// ordering but not on cross-session ordering.
type Event struct {
	Type      EventType      `json:"type"`
	Path      string         `json:"path"`
	Value     any            `json:"value,omitempty"`
	Delta     any            `json:"delta,omitempty"`    // Incremental portion for DELTA events
	Previous  any            `json:"previous,omitempty"` // Value before this update
	SessionID string         `json:"session_id"`
	Sequence  int64          `json:"sequence"`
	Partial   bool           `json:"partial"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventCallback receives events of the type it was registered for.
// Callbacks run synchronously in registration order; a panic in one
// callback is isolated and logged, never propagated.
type EventCallback func(Event)

// DiffKind identifies a structural difference between two snapshots.
type DiffKind string

const (
	DiffAdd         DiffKind = "add"
	DiffUpdate      DiffKind = "update"
	DiffRemove      DiffKind = "remove"
	DiffArrayInsert DiffKind = "array_insert"
	DiffArrayRemove DiffKind = "array_remove"
	DiffArrayUpdate DiffKind = "array_update"
)

// DiffResult describes one structural difference at a path.
type DiffResult struct {
	Path     string   `json:"path"`
	Kind     DiffKind `json:"kind"`
	OldValue any      `json:"old_value,omitempty"`
	NewValue any      `json:"new_value,omitempty"`
	Index    int      `json:"index"` // Array index, -1 when not applicable
}

// DiffMode selects how aggressively the diff engine collapses changes.
type DiffMode string

const (
	// DiffConservative emits every structural difference literally.
	DiffConservative DiffMode = "conservative"
	// DiffSmart collapses append-only array growth into coarser diffs to
	// reduce event volume for token-by-token streaming.
	DiffSmart DiffMode = "smart"
)

// CompletionStrategy selects how aggressively the completer repairs JSON.
type CompletionStrategy string

const (
	// StrategyConservative only balances quotes and brackets.
	StrategyConservative CompletionStrategy = "conservative"
	// StrategySmart additionally inserts missing commas between adjacent
	// members (the default).
	StrategySmart CompletionStrategy = "smart"
	// StrategyAggressive additionally quotes bare object keys.
	StrategyAggressive CompletionStrategy = "aggressive"
)

// RepairStep records one fix applied by the completer, for observability.
type RepairStep struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// CompletionResult is the outcome of a repair attempt. A failed repair
// (IsValid == false) is not a hard error: it signals "not enough data yet"
// and callers should keep buffering.
type CompletionResult struct {
	Completed         string       `json:"completed"`
	IsValid           bool         `json:"is_valid"`
	CompletionApplied bool         `json:"completion_applied"`
	Confidence        float64      `json:"confidence"`
	Trace             []RepairStep `json:"trace,omitempty"`
	Errs              []string     `json:"errors,omitempty"`
}

// PathSegmentKind distinguishes object-key segments from array indices.
type PathSegmentKind int

const (
	SegmentKey PathSegmentKind = iota
	SegmentIndex
)

// PathSegment is one step of a parsed field path.
type PathSegment struct {
	Kind  PathSegmentKind
	Key   string
	Index int
}

// CacheStats reports hit/miss accounting for one internal cache.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRatio  float64 `json:"hit_ratio"`
}

// DiffStats reports diff engine accounting.
type DiffStats struct {
	TotalDiffs           int64 `json:"total_diffs"`
	SuppressedDuplicates int64 `json:"suppressed_duplicates"`
	CoalescedEvents      int64 `json:"coalesced_events"`
	DoneEventsEmitted    int64 `json:"done_events_emitted"`
	TrackedPaths         int   `json:"tracked_paths"`
}

// SessionStats carries per-session timing and repair accounting.
type SessionStats struct {
	TotalChunks     int        `json:"total_chunks"`
	ProcessedChunks int        `json:"processed_chunks"`
	FailedChunks    int        `json:"failed_chunks"`
	StrictParses    int        `json:"strict_parses"`
	LenientParses   int        `json:"lenient_parses"`
	RepairedParses  int        `json:"repaired_parses"`
	ParseFailures   int        `json:"parse_failures"`
	RepairAttempts  int        `json:"repair_attempts"`
	RepairSuccesses int        `json:"repair_successes"`
	TimeoutEvents   int        `json:"timeout_events"`
	StartedAt       time.Time  `json:"started_at"`
	FirstFieldAt    *time.Time `json:"first_field_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// TimeToFirstField returns the latency between session start and the first
// successfully parsed field, or zero if no field has arrived yet.
func (s *SessionStats) TimeToFirstField() time.Duration {
	if s.FirstFieldAt == nil {
		return 0
	}
	return s.FirstFieldAt.Sub(s.StartedAt)
}

// ParserStats aggregates accounting across all sessions of one Parser.
type ParserStats struct {
	TotalSessions     int64 `json:"total_sessions"`
	ActiveSessions    int64 `json:"active_sessions"`
	CompletedSessions int64 `json:"completed_sessions"`
	FailedSessions    int64 `json:"failed_sessions"`
	EventsEmitted     int64 `json:"events_emitted"`
	ChunksProcessed   int64 `json:"chunks_processed"`
	BufferOverflows   int64 `json:"buffer_overflows"`
	Timeouts          int64 `json:"timeouts"`
	RepairAttempts    int64 `json:"repair_attempts"`
	ValidationErrors  int64 `json:"validation_errors"`
}

// TrackerUsage reports resource accounting from a SessionTracker.
type TrackerUsage struct {
	ActiveSessions int   `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
	TrackedBytes   int64 `json:"tracked_bytes"`
	SweepCount     int64 `json:"sweep_count"`
}

// ValidationIssue is one problem reported by an external PathValidator.
type ValidationIssue struct {
	Path     string `json:"path"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// ValidationResult is the outcome of validating one path's value.
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// ValidationContext carries per-session validation state to a PathValidator.
type ValidationContext struct {
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"sequence"`
}
