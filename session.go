package streamjson

import (
	"sync"
	"time"
)

// ParsingState is a point-in-time snapshot of one session, safe to retain
// after the session is cleaned up.
type ParsingState struct {
	SessionID      string        `json:"session_id"`
	CurrentData    any           `json:"current_data"`
	BufferSize     int           `json:"buffer_size"`
	TotalBytes     int64         `json:"total_bytes"`
	Sequence       int64         `json:"sequence"`
	Finalized      bool          `json:"finalized"`
	CurrentTimeout time.Duration `json:"current_timeout"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivity   time.Time     `json:"last_activity"`
	Errors         []string      `json:"errors,omitempty"`
	Stats          SessionStats  `json:"stats"`
}

// session holds all mutable state for one stream. Chunk processing for a
// session is serialized by mu; distinct sessions proceed in parallel.
type session struct {
	mu sync.Mutex

	id           string
	createdAt    time.Time
	lastActivity time.Time

	buffer  *chunkBuffer
	timeout *adaptiveTimeout
	diff    *DiffEngine

	current   any
	sequence  int64
	finalized bool
	errors    []string
	stats     SessionStats
}

func newSession(id string, config *Config) *session {
	now := time.Now()
	return &session{
		id:           id,
		createdAt:    now,
		lastActivity: now,
		buffer:       newChunkBuffer(config.BufferSize),
		timeout: newAdaptiveTimeout(config.ChunkTimeout, config.MaxTimeout,
			config.BackoffFactor, config.SuccessDecay),
		diff:  NewDiffEngine(config),
		stats: SessionStats{StartedAt: now},
	}
}

// nextSequence returns the next per-session sequence number. Caller must
// hold s.mu.
func (s *session) nextSequence() int64 {
	s.sequence++
	return s.sequence
}

// touch records activity for idle-session sweeping. Caller must hold s.mu.
func (s *session) touch() {
	s.lastActivity = time.Now()
}

// recordError appends to the bounded per-session error list. Caller must
// hold s.mu.
func (s *session) recordError(message string) {
	if len(s.errors) >= MaxSessionErrors {
		s.errors = s.errors[1:]
	}
	s.errors = append(s.errors, message)
}

// snapshot copies the session state under the lock. CurrentData is deep
// copied so callers can inspect it without racing the parser.
func (s *session) snapshot() ParsingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ParsingState{
		SessionID:      s.id,
		CurrentData:    deepCopyValue(s.current),
		BufferSize:     s.buffer.size(),
		TotalBytes:     s.buffer.totalBytes,
		Sequence:       s.sequence,
		Finalized:      s.finalized,
		CurrentTimeout: s.timeout.timeout(),
		CreatedAt:      s.createdAt,
		LastActivity:   s.lastActivity,
		Errors:         append([]string(nil), s.errors...),
		Stats:          s.stats,
	}
}

// deepCopyValue clones the JSON-shaped value graphs produced by parsing
// (maps, slices, scalars).
func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[k] = deepCopyValue(child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = deepCopyValue(child)
		}
		return out
	default:
		return v
	}
}
