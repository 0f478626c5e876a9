package streamjson

import (
	"regexp"
	"strings"
)

// FilterMode selects how configured paths gate event emission.
type FilterMode string

const (
	// FilterInclude emits only paths matching the include list.
	FilterInclude FilterMode = "include"
	// FilterExclude emits everything except paths matching the exclude list.
	FilterExclude FilterMode = "exclude"
)

// FilterConfig configures a FieldFilter.
type FilterConfig struct {
	Enabled      bool       `json:"enabled"`
	IncludePaths []string   `json:"include_paths"`
	ExcludePaths []string   `json:"exclude_paths"`
	Mode         FilterMode `json:"mode"`
	ExactMatch   bool       `json:"exact_match"` // Only exact string equality matches
}

// compiledPattern is one validated filter pattern. Wildcard regexes are
// compiled once at construction so evaluation never fails.
type compiledPattern struct {
	raw        string
	isWildcard bool
	regex      *regexp.Regexp // Anchored, wildcard patterns only
	dotStar    string         // Set to "xxx" when raw is "xxx.*"
	hasDot     bool
	leadRegex  *regexp.Regexp // ^raw\[\d+\] for leading array-field match
}

// FieldFilter decides whether a path's value should be emitted and whether
// a subtree should be traversed at all. Safe for concurrent reads once
// constructed; the optional match cache synchronizes its own writes.
type FieldFilter struct {
	enabled    bool
	mode       FilterMode
	exactMatch bool

	include []compiledPattern
	exclude []compiledPattern

	includeFP uint64
	excludeFP uint64

	cache *matchCache
}

// NewFieldFilter validates the configuration and compiles every pattern.
// Invalid mode strings, empty pattern strings, patterns present in both
// lists, and wildcard patterns that fail to compile are all rejected here
// so that evaluation never errors on well-formed config.
func NewFieldFilter(config FilterConfig) (*FieldFilter, error) {
	mode := config.Mode
	if mode == "" {
		mode = FilterInclude
	}
	if mode != FilterInclude && mode != FilterExclude {
		return nil, newFilterError("", "mode must be 'include' or 'exclude', got '"+string(mode)+"'")
	}

	seen := make(map[string]struct{}, len(config.IncludePaths))
	for _, p := range config.IncludePaths {
		seen[p] = struct{}{}
	}
	for _, p := range config.ExcludePaths {
		if _, dup := seen[p]; dup {
			return nil, newFilterError(p, "path appears in both include and exclude lists")
		}
	}

	include, err := compilePatterns(config.IncludePaths)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(config.ExcludePaths)
	if err != nil {
		return nil, err
	}

	return &FieldFilter{
		enabled:    config.Enabled,
		mode:       mode,
		exactMatch: config.ExactMatch,
		include:    include,
		exclude:    exclude,
		includeFP:  patternFingerprint(config.IncludePaths),
		excludeFP:  patternFingerprint(config.ExcludePaths),
	}, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			return nil, newFilterError(raw, "pattern cannot be empty or whitespace only")
		}
		cp := compiledPattern{
			raw:    raw,
			hasDot: strings.ContainsRune(raw, '.'),
		}
		if strings.ContainsRune(raw, '*') {
			cp.isWildcard = true
			expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(raw), `\*`, ".*") + "$"
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, newFilterError(raw, "wildcard pattern does not compile: "+err.Error())
			}
			cp.regex = re
			if strings.HasSuffix(raw, ".*") {
				cp.dotStar = raw[:len(raw)-2]
			}
		} else {
			cp.leadRegex = regexp.MustCompile("^" + regexp.QuoteMeta(raw) + `\[\d+\]`)
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}

// attachCache wires a per-parser match cache into the filter. Nil-safe.
func (f *FieldFilter) attachCache(cache *matchCache) {
	if f != nil {
		f.cache = cache
	}
}

// Enabled reports whether filtering is active.
func (f *FieldFilter) Enabled() bool {
	return f != nil && f.enabled
}

// ShouldIncludePath decides whether a path's value should be emitted.
//
// Evaluation order: disabled filters include everything; a non-empty
// include list requires at least one match; a non-empty exclude list
// vetoes matches regardless of the include result; with neither list the
// default is include.
func (f *FieldFilter) ShouldIncludePath(path string) bool {
	if !f.Enabled() {
		return true
	}
	if len(f.include) > 0 && !f.matches(path, f.include, f.includeFP) {
		return false
	}
	if len(f.exclude) > 0 && f.matches(path, f.exclude, f.excludeFP) {
		return false
	}
	return true
}

// matches reports whether path matches any pattern in the list, consulting
// the match cache when one is attached.
func (f *FieldFilter) matches(path string, patterns []compiledPattern, fingerprint uint64) bool {
	if f.cache != nil {
		if matched, ok := f.cache.get(path, fingerprint); ok {
			return matched
		}
	}
	matched := false
	for i := range patterns {
		if f.matchesPattern(path, &patterns[i]) {
			matched = true
			break
		}
	}
	if f.cache != nil {
		f.cache.put(path, fingerprint, matched)
	}
	return matched
}

// matchesPattern evaluates the ordered matching predicates for one pattern,
// short-circuiting on the first hit:
//
//  1. exact string equality
//  2. wildcard match ("xxx.*" also matches "xxx" itself and "xxx[i]")
//  3. suffix field-name match (path ends with ".pattern")
//  4. array-element field-name match (path ends with "[i].pattern")
//  5. leading array-field match ("pattern[i]..." matches "pattern")
//  6. dotted nested match with array indices stripped
//  7. embedded field-name match at a path boundary
func (f *FieldFilter) matchesPattern(path string, cp *compiledPattern) bool {
	if path == cp.raw {
		return true
	}
	if f.exactMatch {
		return false
	}

	if cp.isWildcard {
		if cp.regex.MatchString(path) {
			return true
		}
		if cp.dotStar != "" {
			if path == cp.dotStar || strings.HasPrefix(path, cp.dotStar+"[") {
				return true
			}
		}
		return false
	}

	if strings.HasSuffix(path, "."+cp.raw) {
		return true
	}
	if cp.leadRegex.MatchString(path) {
		return true
	}
	if cp.hasDot && stripIndexes(path) == cp.raw {
		return true
	}
	if strings.Contains(path, cp.raw) {
		if strings.HasPrefix(path, cp.raw) || strings.Contains(path, "."+cp.raw) ||
			strings.Contains(path, "]."+cp.raw) {
			return true
		}
	}
	return false
}

// shouldProcessBranch decides whether traversal should descend into a
// subtree. In include mode a branch is processed when it is an ancestor or
// descendant of (or a name match for) any include pattern, erring toward
// over-inclusion so valid leaves are never pruned away. In exclude mode
// every branch is processed: exclude patterns name leaves or subtrees that
// cannot be predicted from an ancestor path, so exclusion is applied only
// at the leaf emission decision.
func (f *FieldFilter) shouldProcessBranch(path string) bool {
	if !f.Enabled() || path == "" {
		return true
	}
	if f.mode == FilterExclude {
		return true
	}
	for i := range f.include {
		cp := &f.include[i]
		if cp.isWildcard {
			// Wildcards cannot be reasoned about prefix-wise; descend.
			return true
		}
		pattern := cp.raw
		switch {
		case path == pattern:
			return true
		case strings.HasPrefix(pattern, path+".") || strings.HasPrefix(pattern, path+"["):
			return true // path is an ancestor of the pattern
		case strings.HasPrefix(path, pattern+".") || strings.HasPrefix(path, pattern+"["):
			return true // path is a descendant of the pattern
		case strings.HasSuffix(path, "."+pattern) || strings.HasSuffix(path, "["+pattern+"]"):
			return true
		case lastSegmentName(path) == pattern:
			return true
		}
	}
	return false
}
