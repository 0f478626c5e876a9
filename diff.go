package streamjson

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DiffEngine computes structural differences between successive snapshots
// of one session's parsed data and decides which of them deserve events.
// It suppresses re-emission of unchanged values by hashing, tracks how long
// each path has been stable, and optionally coalesces bursts of diffs into
// a time window. One engine serves one session.
type DiffEngine struct {
	mode               DiffMode
	coalescing         bool
	window             time.Duration
	maxPending         int
	maxDepth           int
	stabilityThreshold int

	mu           sync.Mutex
	pathHashes   map[string]uint64
	stability    map[string]int
	done         map[string]struct{}
	pending      map[string]DiffResult
	pendingOrder []string
	pendingSince time.Time

	totalDiffs  int64
	suppressed  int64
	coalesced   int64
	doneEmitted int64
}

// NewDiffEngine builds an engine from the parser configuration.
func NewDiffEngine(config *Config) *DiffEngine {
	mode := config.DiffMode
	if mode == "" {
		mode = DiffConservative
	}
	threshold := config.StabilityThreshold
	if threshold <= 0 {
		threshold = DefaultStabilityThreshold
	}
	window := config.CoalescingWindow
	if window <= 0 {
		window = DefaultCoalescingWindow
	}
	maxPending := config.MaxPendingDiffs
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingDiffs
	}
	return &DiffEngine{
		mode:               mode,
		coalescing:         config.CoalescingEnabled,
		window:             window,
		maxPending:         maxPending,
		maxDepth:           config.MaxDepth,
		stabilityThreshold: threshold,
		pathHashes:         make(map[string]uint64),
		stability:          make(map[string]int),
		done:               make(map[string]struct{}),
		pending:            make(map[string]DiffResult),
	}
}

// ComputeDiff returns the structural differences between old and new,
// rooted at basePath. In smart mode append-only array growth is detected
// and reported as inserts plus an update of the element still in flight,
// instead of index-by-index noise. Containers at the configured depth
// bound are compared as atomic values.
func (e *DiffEngine) ComputeDiff(oldValue, newValue any, basePath string) []DiffResult {
	// First snapshot: diff against an empty container so every member
	// surfaces as an add rather than one opaque root update.
	if oldValue == nil {
		switch newValue.(type) {
		case map[string]any:
			oldValue = map[string]any{}
		case []any:
			oldValue = []any{}
		}
	}

	var out []DiffResult
	e.compare(oldValue, newValue, basePath, 0, &out)

	e.mu.Lock()
	e.totalDiffs += int64(len(out))
	e.mu.Unlock()
	return out
}

// compare recurses structurally; depth is the segment depth of path.
func (e *DiffEngine) compare(oldValue, newValue any, path string, depth int, out *[]DiffResult) {
	if e.maxDepth > 0 && depth >= e.maxDepth && isContainer(newValue) {
		if !reflect.DeepEqual(oldValue, newValue) {
			*out = append(*out, DiffResult{Path: path, Kind: DiffUpdate, OldValue: oldValue, NewValue: newValue, Index: -1})
		}
		return
	}
	switch nv := newValue.(type) {
	case map[string]any:
		ov, ok := oldValue.(map[string]any)
		if !ok {
			*out = append(*out, DiffResult{Path: path, Kind: DiffUpdate, OldValue: oldValue, NewValue: newValue, Index: -1})
			return
		}
		e.compareObjects(ov, nv, path, depth, out)
	case []any:
		ov, ok := oldValue.([]any)
		if !ok {
			*out = append(*out, DiffResult{Path: path, Kind: DiffUpdate, OldValue: oldValue, NewValue: newValue, Index: -1})
			return
		}
		e.compareArrays(ov, nv, path, depth, out)
	default:
		if !reflect.DeepEqual(oldValue, newValue) {
			*out = append(*out, DiffResult{Path: path, Kind: DiffUpdate, OldValue: oldValue, NewValue: newValue, Index: -1})
		}
	}
}

func (e *DiffEngine) compareObjects(oldObj, newObj map[string]any, path string, depth int, out *[]DiffResult) {
	keys := make([]string, 0, len(newObj))
	for k := range newObj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := joinPath(path, k)
		nv := newObj[k]
		ov, existed := oldObj[k]
		if !existed {
			e.emitAdd(nv, childPath, -1, DiffAdd, depth+1, out)
			continue
		}
		if isContainer(ov) && isContainer(nv) {
			e.compare(ov, nv, childPath, depth+1, out)
		} else if !reflect.DeepEqual(ov, nv) {
			*out = append(*out, DiffResult{Path: childPath, Kind: DiffUpdate, OldValue: ov, NewValue: nv, Index: -1})
		}
	}

	removed := make([]string, 0)
	for k := range oldObj {
		if _, still := newObj[k]; !still {
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	for _, k := range removed {
		*out = append(*out, DiffResult{Path: joinPath(path, k), Kind: DiffRemove, OldValue: oldObj[k], Index: -1})
	}
}

func (e *DiffEngine) compareArrays(oldArr, newArr []any, path string, depth int, out *[]DiffResult) {
	if e.mode == DiffSmart && isAppendOnly(oldArr, newArr) {
		// Only the trailing shared element can still be changing.
		if n := len(oldArr); n > 0 {
			last := n - 1
			if !reflect.DeepEqual(oldArr[last], newArr[last]) {
				e.compareElement(oldArr[last], newArr[last], indexPath(path, last), last, depth+1, out)
			}
		}
		for i := len(oldArr); i < len(newArr); i++ {
			e.emitAdd(newArr[i], indexPath(path, i), i, DiffArrayInsert, depth+1, out)
		}
		return
	}

	shared := len(oldArr)
	if len(newArr) < shared {
		shared = len(newArr)
	}
	for i := 0; i < shared; i++ {
		if !reflect.DeepEqual(oldArr[i], newArr[i]) {
			e.compareElement(oldArr[i], newArr[i], indexPath(path, i), i, depth+1, out)
		}
	}
	for i := shared; i < len(newArr); i++ {
		e.emitAdd(newArr[i], indexPath(path, i), i, DiffArrayInsert, depth+1, out)
	}
	for i := shared; i < len(oldArr); i++ {
		*out = append(*out, DiffResult{Path: indexPath(path, i), Kind: DiffArrayRemove, OldValue: oldArr[i], Index: i})
	}
}

// emitAdd reports a newly appeared value. Container values are expanded to
// leaf-level adds so consumers (and the field filter) see individual
// fields; empty containers, scalars, and containers at the depth bound
// report as a single diff.
func (e *DiffEngine) emitAdd(value any, path string, index int, kind DiffKind, depth int, out *[]DiffResult) {
	if e.maxDepth <= 0 || depth < e.maxDepth {
		switch v := value.(type) {
		case map[string]any:
			if len(v) > 0 {
				e.compareObjects(map[string]any{}, v, path, depth, out)
				return
			}
		case []any:
			if len(v) > 0 {
				e.compareArrays([]any{}, v, path, depth, out)
				return
			}
		}
	}
	*out = append(*out, DiffResult{Path: path, Kind: kind, NewValue: value, Index: index})
}

// compareElement recurses into container elements and reports scalar
// element changes as array updates.
func (e *DiffEngine) compareElement(oldElem, newElem any, path string, index, depth int, out *[]DiffResult) {
	if isContainer(oldElem) && isContainer(newElem) {
		e.compare(oldElem, newElem, path, depth, out)
		return
	}
	*out = append(*out, DiffResult{Path: path, Kind: DiffArrayUpdate, OldValue: oldElem, NewValue: newElem, Index: index})
}

// isAppendOnly reports whether newArr extends oldArr without touching any
// element before the last one oldArr already had.
func isAppendOnly(oldArr, newArr []any) bool {
	if len(newArr) < len(oldArr) {
		return false
	}
	for i := 0; i < len(oldArr)-1; i++ {
		if !reflect.DeepEqual(oldArr[i], newArr[i]) {
			return false
		}
	}
	return true
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// ShouldEmit reports whether path's value differs from the last emitted
// one. An unchanged value is suppressed and advances the path's stability
// counter; a change resets it.
func (e *DiffEngine) ShouldEmit(path string, value any) bool {
	hash, ok := valueHash(value)
	if !ok {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := e.observeLocked(path, hash)
	if !changed {
		e.suppressed++
	}
	return changed
}

// Observe updates path's hash and stability bookkeeping without counting
// toward suppression stats. Used to age paths that produced no diff this
// round so they can become eligible for DONE.
func (e *DiffEngine) Observe(path string, value any) bool {
	hash, ok := valueHash(value)
	if !ok {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.observeLocked(path, hash)
}

// observeLocked reports whether path's value changed since last seen.
// Caller holds e.mu.
func (e *DiffEngine) observeLocked(path string, hash uint64) bool {
	if prev, seen := e.pathHashes[path]; seen && prev == hash {
		e.stability[path]++
		return false
	}
	e.pathHashes[path] = hash
	e.stability[path] = 0
	delete(e.done, path)
	return true
}

// IsStable reports whether path has survived at least the configured
// number of consecutive unchanged observations.
func (e *DiffEngine) IsStable(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stability[path] >= e.stabilityThreshold
}

// MarkDone records that a DONE event was emitted for path and returns
// false when one was already emitted, so DONE fires at most once per path
// per stable value.
func (e *DiffEngine) MarkDone(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, already := e.done[path]; already {
		return false
	}
	e.done[path] = struct{}{}
	e.doneEmitted++
	return true
}

// Coalesce folds diffs into the pending window, keeping only the newest
// diff per path, and returns the batch once the window has elapsed or the
// pending set outgrows its bound. With coalescing disabled, diffs pass
// straight through.
func (e *DiffEngine) Coalesce(diffs []DiffResult, now time.Time) []DiffResult {
	if !e.coalescing {
		return diffs
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 && len(diffs) > 0 {
		e.pendingSince = now
	}
	for _, d := range diffs {
		if _, merged := e.pending[d.Path]; merged {
			e.coalesced++
		} else {
			e.pendingOrder = append(e.pendingOrder, d.Path)
		}
		e.pending[d.Path] = d
	}

	if len(e.pending) == 0 {
		return nil
	}
	if now.Sub(e.pendingSince) < e.window && len(e.pending) <= e.maxPending {
		return nil
	}
	return e.drainPendingLocked()
}

// FlushPending releases everything held in the coalescing window, in
// first-seen order.
func (e *DiffEngine) FlushPending() []DiffResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drainPendingLocked()
}

func (e *DiffEngine) drainPendingLocked() []DiffResult {
	if len(e.pending) == 0 {
		return nil
	}
	out := make([]DiffResult, 0, len(e.pending))
	for _, path := range e.pendingOrder {
		if d, ok := e.pending[path]; ok {
			out = append(out, d)
		}
	}
	e.pending = make(map[string]DiffResult)
	e.pendingOrder = e.pendingOrder[:0]
	return out
}

// CleanupPath drops all tracked state at path and beneath it.
func (e *DiffEngine) CleanupPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for tracked := range e.pathHashes {
		if pathWithin(tracked, path) {
			delete(e.pathHashes, tracked)
			delete(e.stability, tracked)
			delete(e.done, tracked)
		}
	}
}

// Stats returns a snapshot of the engine's accounting.
func (e *DiffEngine) Stats() DiffStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return DiffStats{
		TotalDiffs:           e.totalDiffs,
		SuppressedDuplicates: e.suppressed,
		CoalescedEvents:      e.coalesced,
		DoneEventsEmitted:    e.doneEmitted,
		TrackedPaths:         len(e.pathHashes),
	}
}

// pathWithin reports whether tracked equals root or lies beneath it.
func pathWithin(tracked, root string) bool {
	if root == "" || tracked == root {
		return true
	}
	return strings.HasPrefix(tracked, root+".") || strings.HasPrefix(tracked, root+"[")
}

// valueHash returns a canonical hash of value. encoding/json sorts object
// keys, so equal values hash equally regardless of map iteration order.
func valueHash(value any) (uint64, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(raw), true
}
