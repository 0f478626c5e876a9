package streamjson

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// SessionTracker observes session lifecycle for resource accounting and
// capacity enforcement. The parser registers, touches and unregisters
// sessions as they come and go; implementations may evict on capacity.
type SessionTracker interface {
	// Register admits a new session, evicting older ones if needed.
	Register(sessionID string, approxBytes int64)
	// Touch records activity and the session's current approximate size.
	Touch(sessionID string, approxBytes int64)
	// Unregister removes a session from tracking.
	Unregister(sessionID string)
	// Usage reports current tracking accounting.
	Usage() TrackerUsage
}

type trackedSession struct {
	lastSeen time.Time
	bytes    int64
}

// MemoryTracker is the in-process SessionTracker. It enforces a session
// count ceiling by evicting the least recently active session and runs a
// background sweep that drops sessions idle past their TTL. Evictions are
// reported through the eviction handler so the owner can release the
// session's parser state.
type MemoryTracker struct {
	mu       sync.Mutex
	sessions map[string]*trackedSession

	maxSessions int
	idleTTL     time.Duration

	totalSessions int64
	sweeps        int64

	onEvict func(sessionID string)
	logger  *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryTracker starts a tracker sweeping at sweepInterval. Zero or
// negative arguments fall back to the package defaults.
func NewMemoryTracker(maxSessions int, idleTTL, sweepInterval time.Duration, logger *slog.Logger) *MemoryTracker {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &MemoryTracker{
		sessions:    make(map[string]*trackedSession),
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
	go t.sweepLoop(sweepInterval)
	return t
}

// SetEvictionHandler installs the function called with each evicted
// session id. The handler runs outside the tracker lock and must be safe
// to call from the sweep goroutine.
func (t *MemoryTracker) SetEvictionHandler(fn func(sessionID string)) {
	t.mu.Lock()
	t.onEvict = fn
	t.mu.Unlock()
}

// Register implements SessionTracker. When the tracker is at capacity the
// least recently active sessions are evicted to make room.
func (t *MemoryTracker) Register(sessionID string, approxBytes int64) {
	t.mu.Lock()
	var evicted []string
	if _, exists := t.sessions[sessionID]; !exists && len(t.sessions) >= t.maxSessions {
		evicted = t.evictOldestLocked(len(t.sessions) - t.maxSessions + 1)
	}
	t.sessions[sessionID] = &trackedSession{lastSeen: time.Now(), bytes: approxBytes}
	t.totalSessions++
	onEvict := t.onEvict
	t.mu.Unlock()

	t.notifyEvicted(evicted, onEvict, "capacity")
}

// Touch implements SessionTracker.
func (t *MemoryTracker) Touch(sessionID string, approxBytes int64) {
	t.mu.Lock()
	if ts, ok := t.sessions[sessionID]; ok {
		ts.lastSeen = time.Now()
		ts.bytes = approxBytes
	}
	t.mu.Unlock()
}

// Unregister implements SessionTracker.
func (t *MemoryTracker) Unregister(sessionID string) {
	t.mu.Lock()
	delete(t.sessions, sessionID)
	t.mu.Unlock()
}

// Usage implements SessionTracker.
func (t *MemoryTracker) Usage() TrackerUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var bytes int64
	for _, ts := range t.sessions {
		bytes += ts.bytes
	}
	return TrackerUsage{
		ActiveSessions: len(t.sessions),
		TotalSessions:  t.totalSessions,
		TrackedBytes:   bytes,
		SweepCount:     t.sweeps,
	}
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (t *MemoryTracker) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

func (t *MemoryTracker) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

// sweep evicts every session idle longer than the TTL.
func (t *MemoryTracker) sweep() {
	cutoff := time.Now().Add(-t.idleTTL)

	t.mu.Lock()
	var evicted []string
	for id, ts := range t.sessions {
		if ts.lastSeen.Before(cutoff) {
			evicted = append(evicted, id)
			delete(t.sessions, id)
		}
	}
	t.sweeps++
	onEvict := t.onEvict
	t.mu.Unlock()

	t.notifyEvicted(evicted, onEvict, "idle")
}

// evictOldestLocked removes the n least recently active sessions and
// returns their ids. Caller holds t.mu.
func (t *MemoryTracker) evictOldestLocked(n int) []string {
	type aged struct {
		id       string
		lastSeen time.Time
	}
	all := make([]aged, 0, len(t.sessions))
	for id, ts := range t.sessions {
		all = append(all, aged{id, ts.lastSeen})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].lastSeen.Before(all[j].lastSeen) })
	if n > len(all) {
		n = len(all)
	}
	evicted := make([]string, 0, n)
	for _, a := range all[:n] {
		delete(t.sessions, a.id)
		evicted = append(evicted, a.id)
	}
	return evicted
}

func (t *MemoryTracker) notifyEvicted(ids []string, onEvict func(string), reason string) {
	for _, id := range ids {
		t.logger.Warn("session evicted", "session_id", id, "reason", reason)
		if onEvict != nil {
			onEvict(id)
		}
	}
}
