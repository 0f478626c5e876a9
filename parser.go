package streamjson

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Parser turns a stream of raw chunks into structured field events. Each
// stream is a session: chunks for one session are processed sequentially
// under the session lock while distinct sessions run in parallel. The
// parser itself holds no per-call mutable state beyond the session map.
type Parser struct {
	config    *Config
	completer *Completer
	filter    *FieldFilter
	registry  *callbackRegistry
	validator PathValidator
	logger    *slog.Logger

	deltas  *deltaCache
	matches *matchCache

	tracker      SessionTracker
	ownedTracker *MemoryTracker

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	totalSessions     atomic.Int64
	completedSessions atomic.Int64
	failedSessions    atomic.Int64
	eventsEmitted     atomic.Int64
	chunksProcessed   atomic.Int64
	bufferOverflows   atomic.Int64
	timeouts          atomic.Int64
	repairAttempts    atomic.Int64
	validationErrors  atomic.Int64
}

// New builds a Parser from config. A nil config uses DefaultConfig. The
// returned parser owns a background session tracker unless config.Tracker
// supplies one; Close releases owned resources.
func New(config *Config) (*Parser, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	completer, err := NewCompleter(config.CompletionStrategy)
	if err != nil {
		return nil, err
	}

	p := &Parser{
		config:    config,
		completer: completer,
		filter:    config.FieldFilter,
		registry:  newCallbackRegistry(config.logger()),
		validator: config.Validator,
		logger:    config.logger(),
		sessions:  make(map[string]*session),
	}

	if config.EnableCaches {
		if p.deltas, err = newDeltaCache(config.DeltaCacheSize); err != nil {
			return nil, err
		}
		if p.matches, err = newMatchCache(config.MatchCacheSize); err != nil {
			return nil, err
		}
		p.filter.attachCache(p.matches)
	}

	if config.Tracker != nil {
		p.tracker = config.Tracker
	} else {
		p.ownedTracker = NewMemoryTracker(DefaultMaxSessions, DefaultSessionIdleTTL,
			DefaultSweepInterval, p.logger)
		p.ownedTracker.SetEvictionHandler(func(sessionID string) {
			if err := p.CleanupSession(sessionID); err != nil {
				p.logger.Debug("eviction cleanup", "session_id", sessionID, "err", err)
			}
		})
		p.tracker = p.ownedTracker
	}
	return p, nil
}

// Close releases every session and stops the owned tracker. Further calls
// on the parser fail with ErrParserClosed.
func (p *Parser) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	sessions := p.sessions
	p.sessions = make(map[string]*session)
	p.mu.Unlock()

	for id := range sessions {
		p.tracker.Unregister(id)
	}
	if p.ownedTracker != nil {
		p.ownedTracker.Stop()
	}
	return nil
}

// CreateSession opens a new stream and returns its id. An empty sessionID
// gets a generated UUID; a duplicate id is rejected.
func (p *Parser) CreateSession(sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", WrapError(ErrParserClosed, "create_session", "parser has been closed")
	}
	if _, exists := p.sessions[sessionID]; exists {
		p.mu.Unlock()
		return "", newValidationError("create_session", sessionID, "session id already in use")
	}
	s := newSession(sessionID, p.config)
	p.sessions[sessionID] = s
	p.mu.Unlock()

	p.totalSessions.Add(1)
	p.tracker.Register(sessionID, 0)

	s.mu.Lock()
	start := newEvent(EventStart, sessionID, "", s.nextSequence())
	s.mu.Unlock()
	p.emit(start)

	return sessionID, nil
}

// HasSession reports whether sessionID is currently known to the parser.
func (p *Parser) HasSession(sessionID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sessions[sessionID]
	return ok
}

// ActiveSessionIDs returns the ids of all live sessions.
func (p *Parser) ActiveSessionIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (p *Parser) lookup(op, sessionID string) (*session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, WrapError(ErrParserClosed, op, "parser has been closed")
	}
	s, ok := p.sessions[sessionID]
	if !ok {
		return nil, newSessionError(op, sessionID)
	}
	return s, nil
}

// ParseChunk feeds one chunk into a session and returns the events it
// produced, after delivering them to registered callbacks. A chunk that
// does not yet yield parseable JSON is buffered silently: the absence of
// events means "need more data", not failure. Content that is balanced
// yet unparseable after every repair tier produces an ERROR event and an
// entry in the session error list, and the session keeps going.
func (p *Parser) ParseChunk(ctx context.Context, sessionID, chunk string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, "parse_chunk", "context done before processing")
	}
	if chunk == "" {
		return nil, nil
	}
	if int64(len(chunk)) > p.config.MaxChunkSize {
		return nil, &StreamError{
			Op:        "parse_chunk",
			SessionID: sessionID,
			Message:   "chunk exceeds configured max chunk size",
			Err:       ErrChunkTooLarge,
		}
	}

	s, err := p.lookup("parse_chunk", sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil, WrapError(ErrSessionFinalized, "parse_chunk", "session "+sessionID+" is finalized")
	}

	start := time.Now()
	s.stats.TotalChunks++
	p.chunksProcessed.Add(1)

	var events []Event

	overflowed, err := s.buffer.append(chunk)
	if err != nil {
		s.stats.FailedChunks++
		return nil, WrapError(err, "parse_chunk", "chunk rejected by buffer")
	}
	if overflowed {
		p.bufferOverflows.Add(1)
		s.recordError("buffer overflow: content trimmed to stay within bound")
		ev := newEvent(EventError, sessionID, "", s.nextSequence())
		ev.Metadata = map[string]any{
			"error_code": ErrCodeBufferOverflow,
			"message":    "buffer trimmed to stay within bound; earlier fields may not re-emit",
		}
		events = append(events, ev)
	}

	// Parse the soft-trimmed safe prefix, not the raw buffer: a dangling
	// key or half token past the last safe boundary would otherwise let
	// the repair tiers invent values for fields still in flight.
	data, tier, confidence, parsed := p.tryParse(s, s.buffer.softTrimmedContent())
	if parsed {
		s.stats.ProcessedChunks++
		if s.stats.FirstFieldAt == nil {
			now := time.Now()
			s.stats.FirstFieldAt = &now
		}
		events = append(events, p.applySnapshot(s, data, tier, confidence)...)
	} else {
		s.stats.ParseFailures++
		// A balanced buffer that still fails every tier is malformed
		// beyond repair, not merely short on data. An unbalanced one
		// keeps buffering silently.
		if s.buffer.balanced() {
			s.recordError("content is not valid JSON after all repair tiers")
			ev := newEvent(EventError, sessionID, "", s.nextSequence())
			ev.Metadata = map[string]any{
				"error_code": ErrCodeParsing,
				"message":    "content is not valid JSON after all repair tiers",
			}
			events = append(events, ev)
		}
	}

	if p.config.AdaptiveTimeoutEnabled {
		if elapsed := time.Since(start); elapsed > s.timeout.timeout() {
			s.timeout.recordTimeout()
			s.stats.TimeoutEvents++
			p.timeouts.Add(1)
			ev := newEvent(EventError, sessionID, "", s.nextSequence())
			ev.Metadata = map[string]any{
				"error_code": ErrCodeTimeout,
				"elapsed":    elapsed.String(),
				"deadline":   s.timeout.timeout().String(),
			}
			events = append(events, ev)
		} else {
			s.timeout.recordSuccess()
		}
	}

	s.touch()
	p.tracker.Touch(sessionID, int64(s.buffer.size()))

	p.emitAll(events)
	return events, nil
}

// parseTier identifies which parse stage accepted the buffered text.
type parseTier int

const (
	tierStrict parseTier = iota
	tierLenient
	tierRepaired
)

// tryParse runs the three-stage parse pipeline over the buffered text:
// strict first, then lenient normalization of common LLM output quirks,
// then completer-assisted repair when enabled. The confidence is 1.0 for
// the strict and lenient tiers and the completer's score for the repaired
// tier. Caller holds s.mu.
func (p *Parser) tryParse(s *session, content string) (any, parseTier, float64, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, tierStrict, 0, false
	}

	var data any
	if err := json.Unmarshal([]byte(trimmed), &data); err == nil {
		s.stats.StrictParses++
		return data, tierStrict, 1.0, true
	}

	lenient := normalizeLenient(trimmed)
	if lenient != trimmed {
		if err := json.Unmarshal([]byte(lenient), &data); err == nil {
			s.stats.LenientParses++
			return data, tierLenient, 1.0, true
		}
	}

	if !p.config.EnableCompletion {
		return nil, tierStrict, 0, false
	}
	s.stats.RepairAttempts++
	p.repairAttempts.Add(1)
	result := p.completer.Complete(lenient)
	if !result.IsValid {
		return nil, tierStrict, 0, false
	}
	if err := json.Unmarshal([]byte(result.Completed), &data); err != nil {
		return nil, tierStrict, 0, false
	}
	s.stats.RepairedParses++
	s.stats.RepairSuccesses++
	return data, tierRepaired, result.Confidence, true
}

// applySnapshot installs a newly parsed snapshot, computes events for what
// changed since the previous one, and ages unchanged paths toward DONE.
// Caller holds s.mu.
func (p *Parser) applySnapshot(s *session, data any, tier parseTier, confidence float64) []Event {
	now := time.Now()
	partial := tier == tierRepaired || !s.buffer.balanced()

	// With diffing disabled every changed snapshot surfaces as one
	// whole-document delta at the root path.
	if !p.config.EnableDiffEngine {
		if snapshotEqual(s.current, data) {
			s.current = data
			return nil
		}
		d := DiffResult{Path: "", Kind: DiffUpdate, OldValue: s.current, NewValue: data, Index: -1}
		s.current = data
		ev := p.deltaEvent(s, d, partial)
		if tier == tierRepaired {
			ev.Metadata["confidence"] = confidence
		}
		return []Event{ev}
	}

	diffs := s.diff.ComputeDiff(s.current, data, "")
	s.current = data

	gated := make([]DiffResult, 0, len(diffs))
	touched := make(map[string]struct{}, len(diffs))
	for _, d := range diffs {
		touched[d.Path] = struct{}{}
		// Drop tracked state under removed subtrees so a later re-add of
		// the same values is not suppressed as a duplicate.
		if d.Kind == DiffRemove || d.Kind == DiffArrayRemove {
			s.diff.CleanupPath(d.Path)
		}
		if !p.includePath(d.Path) {
			continue
		}
		if !s.diff.ShouldEmit(d.Path, d.NewValue) {
			continue
		}
		gated = append(gated, d)
	}

	ready := s.diff.Coalesce(gated, now)

	events := make([]Event, 0, len(ready))
	for _, d := range ready {
		ev := p.deltaEvent(s, d, partial)
		if tier == tierRepaired {
			ev.Metadata["confidence"] = confidence
		}
		events = append(events, ev)
	}

	// Age every included leaf the diff did not touch so stability can
	// accrue toward finishing the ones the heuristic cannot decide.
	p.walkIncludedLeaves(data, func(path string, value any) {
		if _, hit := touched[path]; hit {
			return
		}
		s.diff.Observe(path, value)
	})

	events = append(events, p.detectStableFields(s)...)
	return events
}

// deltaEvent renders one diff as a DELTA event. For string updates Delta
// carries only the appended suffix when the new value extends the old one.
// Caller holds s.mu.
func (p *Parser) deltaEvent(s *session, d DiffResult, partial bool) Event {
	ev := newEvent(EventDelta, s.id, d.Path, s.nextSequence())
	ev.Value = d.NewValue
	ev.Previous = d.OldValue
	ev.Partial = partial
	ev.Metadata = map[string]any{
		"diff_kind": string(d.Kind),
		"path_hash": xxhash.Sum64String(d.Path),
	}
	if d.Index >= 0 {
		ev.Metadata["index"] = d.Index
	}
	if d.Kind == DiffUpdate || d.Kind == DiffArrayUpdate {
		ev.Delta = p.stringDelta(d.OldValue, d.NewValue)
	} else {
		ev.Delta = d.NewValue
	}
	return ev
}

// detectStableFields emits DONE for each included leaf whose value the
// completion heuristic accepts: non-string scalars and complete-looking
// strings finish in the round they appear, while containers and strings
// the heuristic cannot decide wait until they have gone unchanged for the
// stability threshold. DONE fires once per path unless the value changes
// again. Caller holds s.mu.
func (p *Parser) detectStableFields(s *session) []Event {
	var events []Event
	p.walkIncludedLeaves(s.current, func(path string, value any) {
		switch value.(type) {
		case map[string]any, []any:
			if !s.diff.IsStable(path) {
				return
			}
		default:
			if !valueLooksComplete(value) && !s.diff.IsStable(path) {
				return
			}
		}
		if !s.diff.MarkDone(path) {
			return
		}
		events = append(events, p.doneEvents(s, path, value)...)
	})
	return events
}

// doneEvents builds the DONE event for a completed path. When the optional
// validator rejects the value, the DONE is annotated and a companion ERROR
// event carries the structured issue list. Caller holds s.mu.
func (p *Parser) doneEvents(s *session, path string, value any) []Event {
	done := newEvent(EventDone, s.id, path, s.nextSequence())
	done.Value = value
	if p.validator == nil {
		return []Event{done}
	}
	result := p.validator.ValidatePath(path, value, ValidationContext{
		SessionID: s.id,
		Sequence:  done.Sequence,
	})
	if result.IsValid {
		return []Event{done}
	}
	p.validationErrors.Add(1)
	done.Metadata = map[string]any{"validation": result.Issues}
	fail := newEvent(EventError, s.id, path, s.nextSequence())
	fail.Value = value
	fail.Metadata = map[string]any{
		"error_code": ErrCodeValidation,
		"validation": result.Issues,
	}
	return []Event{done, fail}
}

// FinalizeSession flushes pending work for a stream that has ended: any
// coalesced diffs are released, a last completion-assisted parse is
// attempted on the remaining buffer, every included leaf gets its DONE,
// and a FINISH event closes the session with the final data.
func (p *Parser) FinalizeSession(ctx context.Context, sessionID string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, "finalize_session", "context done before processing")
	}
	s, err := p.lookup("finalize_session", sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil, WrapError(ErrSessionFinalized, "finalize_session", "session "+sessionID+" is finalized")
	}

	var events []Event

	// Final parse attempt: repair is always in play here, even when
	// per-chunk completion is disabled, since no more data is coming.
	if s.buffer.size() > 0 {
		content := normalizeLenient(strings.TrimSpace(s.buffer.content()))
		var data any
		ok := json.Unmarshal([]byte(content), &data) == nil
		if !ok {
			s.stats.RepairAttempts++
			p.repairAttempts.Add(1)
			if result := p.completer.Complete(content); result.IsValid {
				ok = json.Unmarshal([]byte(result.Completed), &data) == nil
				if ok {
					s.stats.RepairSuccesses++
				}
			}
		}
		switch {
		case ok && !snapshotEqual(s.current, data):
			events = append(events, p.applySnapshot(s, data, tierStrict, 1.0)...)
		case !ok && s.current == nil:
			s.recordError("stream ended before any content parsed")
			ev := newEvent(EventError, sessionID, "", s.nextSequence())
			ev.Metadata = map[string]any{
				"error_code": ErrCodeParsing,
				"message":    "stream ended before any content parsed",
			}
			events = append(events, ev)
		}
	}

	for _, d := range s.diff.FlushPending() {
		events = append(events, p.deltaEvent(s, d, false))
	}

	// Every included leaf is final now regardless of heuristics.
	p.walkIncludedLeaves(s.current, func(path string, value any) {
		if !s.diff.MarkDone(path) {
			return
		}
		events = append(events, p.doneEvents(s, path, value)...)
	})

	finish := newEvent(EventFinish, sessionID, "", s.nextSequence())
	finish.Value = deepCopyValue(s.current)
	events = append(events, finish)

	now := time.Now()
	s.stats.CompletedAt = &now
	s.finalized = true
	if len(s.errors) == 0 {
		p.completedSessions.Add(1)
	} else {
		p.failedSessions.Add(1)
	}
	p.tracker.Unregister(sessionID)

	p.emitAll(events)
	return events, nil
}

// CleanupSession removes all state for sessionID. Finalized and live
// sessions alike are dropped; unknown ids return ErrSessionNotFound.
func (p *Parser) CleanupSession(sessionID string) error {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	if ok {
		delete(p.sessions, sessionID)
	}
	p.mu.Unlock()
	if !ok {
		return newSessionError("cleanup_session", sessionID)
	}

	s.mu.Lock()
	if !s.finalized {
		p.failedSessions.Add(1)
	}
	s.buffer.reset()
	s.mu.Unlock()

	p.tracker.Unregister(sessionID)
	return nil
}

// GetParsingState returns a snapshot of one session's state.
func (p *Parser) GetParsingState(sessionID string) (*ParsingState, error) {
	s, err := p.lookup("get_parsing_state", sessionID)
	if err != nil {
		return nil, err
	}
	state := s.snapshot()
	return &state, nil
}

// CurrentData returns a deep copy of the session's latest parsed tree,
// or nil when nothing has parsed yet.
func (p *Parser) CurrentData(sessionID string) (any, error) {
	s, err := p.lookup("current_data", sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopyValue(s.current), nil
}

// FieldValue returns a deep copy of the value at path in the session's
// latest parsed tree. The second return is false when the path does not
// resolve (yet).
func (p *Parser) FieldValue(sessionID, path string) (any, bool, error) {
	s, err := p.lookup("field_value", sessionID)
	if err != nil {
		return nil, false, err
	}
	if _, err := ParsePath(path); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := valueAtPath(s.current, path)
	if !ok {
		return nil, false, nil
	}
	return deepCopyValue(value), true, nil
}

// AddEventCallback registers cb for events of the given type and returns
// a handle usable with RemoveEventCallback.
func (p *Parser) AddEventCallback(eventType EventType, cb EventCallback) int64 {
	return p.registry.add(eventType, cb)
}

// RemoveEventCallback unregisters a callback by its handle.
func (p *Parser) RemoveEventCallback(eventType EventType, id int64) bool {
	return p.registry.remove(eventType, id)
}

// GetStats returns aggregate accounting across all sessions.
func (p *Parser) GetStats() ParserStats {
	p.mu.RLock()
	active := len(p.sessions)
	p.mu.RUnlock()
	return ParserStats{
		TotalSessions:     p.totalSessions.Load(),
		ActiveSessions:    int64(active),
		CompletedSessions: p.completedSessions.Load(),
		FailedSessions:    p.failedSessions.Load(),
		EventsEmitted:     p.eventsEmitted.Load(),
		ChunksProcessed:   p.chunksProcessed.Load(),
		BufferOverflows:   p.bufferOverflows.Load(),
		Timeouts:          p.timeouts.Load(),
		RepairAttempts:    p.repairAttempts.Load(),
		ValidationErrors:  p.validationErrors.Load(),
	}
}

// ResetStats zeroes the aggregate counters. Per-session stats are kept.
func (p *Parser) ResetStats() {
	p.totalSessions.Store(0)
	p.completedSessions.Store(0)
	p.failedSessions.Store(0)
	p.eventsEmitted.Store(0)
	p.chunksProcessed.Store(0)
	p.bufferOverflows.Store(0)
	p.timeouts.Store(0)
	p.repairAttempts.Store(0)
	p.validationErrors.Store(0)
}

// CacheStats reports hit/miss accounting for the delta and match caches.
func (p *Parser) CacheStats() (delta, match CacheStats) {
	if p.deltas != nil {
		delta = p.deltas.stats()
	}
	if p.matches != nil {
		match = p.matches.stats()
	}
	return delta, match
}

// TrackerUsage reports the session tracker's resource accounting.
func (p *Parser) TrackerUsage() TrackerUsage {
	return p.tracker.Usage()
}

func (p *Parser) includePath(path string) bool {
	if p.filter == nil {
		return true
	}
	return p.filter.ShouldIncludePath(path)
}

// walkIncludedLeaves visits each leaf of node that passes the field
// filter, letting the filter prune whole branches before descending and
// honoring the configured depth bound.
func (p *Parser) walkIncludedLeaves(node any, fn func(path string, value any)) {
	var descend func(string) bool
	if p.filter != nil {
		descend = p.filter.shouldProcessBranch
	}
	walkLeaves(node, p.config.MaxDepth, descend, func(path string, value any) {
		if !p.includePath(path) {
			return
		}
		fn(path, value)
	})
}

func (p *Parser) emit(ev Event) {
	p.eventsEmitted.Add(1)
	p.registry.dispatch(ev)
}

func (p *Parser) emitAll(events []Event) {
	for _, ev := range events {
		p.emit(ev)
	}
}

// stringDelta computes the incremental portion of a string update: the
// appended suffix when new extends old, otherwise the whole new value.
// Non-string pairs pass through unchanged.
func (p *Parser) stringDelta(oldValue, newValue any) any {
	oldStr, okOld := oldValue.(string)
	newStr, okNew := newValue.(string)
	if !okOld || !okNew {
		return newValue
	}
	if p.deltas != nil {
		if delta, hit := p.deltas.get(oldStr, newStr); hit {
			return delta
		}
	}
	delta := newStr
	if strings.HasPrefix(newStr, oldStr) {
		delta = newStr[len(oldStr):]
	}
	if p.deltas != nil {
		p.deltas.put(oldStr, newStr, delta)
	}
	return delta
}

// valueLooksComplete applies the streaming completion heuristics: strings
// ending in terminal punctuation are complete, strings ending in a
// continuation character are not, and short strings are presumed complete.
// Non-string scalars are always complete; containers are not decided here
// and rely on stability aging instead.
func valueLooksComplete(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	if s == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if _, terminal := terminalRunes[last]; terminal {
		return true
	}
	if _, cont := continuationRunes[last]; cont {
		return false
	}
	return utf8.RuneCountInString(s) < ShortStringCompleteLen
}

// normalizeLenient rewrites common LLM output quirks into strict JSON:
// line comments are stripped, single-quoted strings become double-quoted,
// and trailing commas are dropped.
func normalizeLenient(text string) string {
	text = stripLineComments(text)
	text = normalizeQuotes(text)
	return trailingCommaFix.ReplaceAllString(text, "$1")
}

// normalizeQuotes converts single-quoted strings to double-quoted ones,
// escaping embedded double quotes and unescaping \' along the way.
func normalizeQuotes(text string) string {
	if !strings.ContainsRune(text, '\'') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	inString := false
	escape := false
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			if escape {
				escape = false
				if quote == '\'' && ch == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(ch)
				}
				continue
			}
			switch {
			case ch == '\\':
				escape = true
			case ch == quote:
				inString = false
				b.WriteByte('"')
			case ch == '"' && quote == '\'':
				b.WriteString(`\"`)
			default:
				b.WriteByte(ch)
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
			b.WriteByte('"')
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func snapshotEqual(a, b any) bool {
	ha, okA := valueHash(a)
	hb, okB := valueHash(b)
	return okA && okB && ha == hb
}
