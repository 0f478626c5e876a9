package streamjson

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Field paths use dotted notation for object keys and bracketed zero-based
// indices for arrays: "a.b[0].c". Path building happens on the traversal
// hot path, so the join helpers avoid fmt.

var arrayIndexSuffix = regexp.MustCompile(`\[\d+\]$`)

// joinPath appends an object key to a parent path.
func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	var sb strings.Builder
	sb.Grow(len(parent) + len(key) + 1)
	sb.WriteString(parent)
	sb.WriteByte('.')
	sb.WriteString(key)
	return sb.String()
}

// indexPath appends an array index to a parent path.
func indexPath(parent string, index int) string {
	var sb strings.Builder
	sb.Grow(len(parent) + 8)
	sb.WriteString(parent)
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(index))
	sb.WriteByte(']')
	return sb.String()
}

// ParsePath parses a dotted/bracketed path into segments.
func ParsePath(path string) ([]PathSegment, error) {
	if path == "" {
		return []PathSegment{}, nil
	}

	var segments []PathSegment
	var current strings.Builder
	flushKey := func() {
		if current.Len() == 0 {
			return
		}
		segments = append(segments, PathSegment{Kind: SegmentKey, Key: current.String()})
		current.Reset()
	}

	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			if current.Len() == 0 && (i == 0 || path[i-1] != ']') {
				return nil, WrapPathError(ErrInvalidArgument, "parse_path", path, "empty path segment")
			}
			flushKey()
			i++
			if i == len(path) {
				return nil, WrapPathError(ErrInvalidArgument, "parse_path", path, "trailing dot")
			}
		case '[':
			flushKey()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, WrapPathError(ErrInvalidArgument, "parse_path", path, "unclosed bracket")
			}
			raw := path[i+1 : i+end]
			index, err := strconv.Atoi(raw)
			if err != nil || index < 0 {
				return nil, WrapPathError(ErrInvalidArgument, "parse_path", path,
					fmt.Sprintf("invalid array index '%s'", raw))
			}
			segments = append(segments, PathSegment{Kind: SegmentIndex, Index: index})
			i += end + 1
		case ']':
			return nil, WrapPathError(ErrInvalidArgument, "parse_path", path, "unmatched closing bracket")
		default:
			current.WriteByte(path[i])
			i++
		}
	}
	flushKey()
	return segments, nil
}

// valueAtPath resolves a path against a parsed tree. The second return is
// false when any segment is missing or of the wrong container kind.
func valueAtPath(root any, path string) (any, bool) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	node := root
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentKey:
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, false
			}
			node, ok = obj[seg.Key]
			if !ok {
				return nil, false
			}
		case SegmentIndex:
			arr, ok := node.([]any)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			node = arr[seg.Index]
		}
	}
	return node, true
}

// walkLeaves visits every leaf of a parsed tree, depth-first, in
// deterministic (sorted-key) order. Before entering a non-root container,
// descend is consulted with the container's path and may prune the whole
// subtree; nil descends everywhere. Empty containers are visited as leaves
// themselves, as is any container sitting at the depth bound. maxDepth <= 0
// means unbounded.
func walkLeaves(root any, maxDepth int, descend func(path string) bool, visit func(path string, value any)) {
	walkLeavesFrom(root, "", 0, maxDepth, descend, visit)
}

func walkLeavesFrom(node any, path string, depth, maxDepth int, descend func(string) bool, visit func(string, any)) {
	switch v := node.(type) {
	case map[string]any:
		if path != "" {
			if descend != nil && !descend(path) {
				return
			}
			if len(v) == 0 || (maxDepth > 0 && depth >= maxDepth) {
				visit(path, v)
				return
			}
		} else if len(v) == 0 {
			return
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkLeavesFrom(v[k], joinPath(path, k), depth+1, maxDepth, descend, visit)
		}
	case []any:
		if path != "" {
			if descend != nil && !descend(path) {
				return
			}
			if len(v) == 0 || (maxDepth > 0 && depth >= maxDepth) {
				visit(path, v)
				return
			}
		} else if len(v) == 0 {
			return
		}
		for i, item := range v {
			walkLeavesFrom(item, indexPath(path, i), depth+1, maxDepth, descend, visit)
		}
	default:
		if path != "" {
			visit(path, v)
		}
	}
}

// stripIndexes removes array index segments anywhere in a path, so
// "users[0].name" normalizes to "users.name" for dotted-pattern matching.
func stripIndexes(path string) string {
	if !strings.ContainsRune(path, '[') {
		return path
	}
	var sb strings.Builder
	sb.Grow(len(path))
	depth := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				sb.WriteByte(path[i])
			}
		}
	}
	return sb.String()
}

// lastSegmentName returns the final key of a path, with any trailing array
// index removed ("a.b[2]" -> "b", "a.b.c" -> "c").
func lastSegmentName(path string) string {
	trimmed := arrayIndexSuffix.ReplaceAllString(path, "")
	if i := strings.LastIndexByte(trimmed, '.'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if j := strings.IndexByte(trimmed, '['); j >= 0 {
		trimmed = trimmed[:j]
	}
	return trimmed
}
