package streamjson

import (
	"log/slog"
	"sync"
	"time"
)

// callbackEntry pairs a registered callback with its removal handle.
type callbackEntry struct {
	id int64
	fn EventCallback
}

// callbackRegistry holds per-event-type callbacks. Dispatch runs callbacks
// synchronously in registration order; a panicking callback is recovered
// and logged so one misbehaving consumer cannot take down the stream.
type callbackRegistry struct {
	mu        sync.RWMutex
	nextID    int64
	callbacks map[EventType][]callbackEntry
	logger    *slog.Logger
}

func newCallbackRegistry(logger *slog.Logger) *callbackRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &callbackRegistry{
		callbacks: make(map[EventType][]callbackEntry),
		logger:    logger,
	}
}

// add registers fn for eventType and returns a handle for removal.
func (r *callbackRegistry) add(eventType EventType, fn EventCallback) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.callbacks[eventType] = append(r.callbacks[eventType], callbackEntry{id: id, fn: fn})
	return id
}

// remove unregisters the callback with the given handle. It reports
// whether a callback was actually removed.
func (r *callbackRegistry) remove(eventType EventType, id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.callbacks[eventType]
	for i, e := range entries {
		if e.id == id {
			r.callbacks[eventType] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// dispatch delivers event to every callback registered for its type and
// returns how many callbacks ran.
func (r *callbackRegistry) dispatch(event Event) int {
	r.mu.RLock()
	entries := make([]callbackEntry, len(r.callbacks[event.Type]))
	copy(entries, r.callbacks[event.Type])
	r.mu.RUnlock()

	for _, e := range entries {
		r.safeCall(e, event)
	}
	return len(entries)
}

func (r *callbackRegistry) safeCall(entry callbackEntry, event Event) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event callback panicked",
				"event_type", event.Type,
				"path", event.Path,
				"session_id", event.SessionID,
				"panic", p)
		}
	}()
	entry.fn(event)
}

// newEvent builds the immutable envelope shared by all event kinds.
func newEvent(t EventType, sessionID, path string, sequence int64) Event {
	return Event{
		Type:      t,
		Path:      path,
		SessionID: sessionID,
		Sequence:  sequence,
		Timestamp: time.Now(),
	}
}
