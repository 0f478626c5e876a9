package streamjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	segments, err := ParsePath("users[0].profile.tags[12]")
	require.NoError(t, err)
	require.Len(t, segments, 5)

	assert.Equal(t, PathSegment{Kind: SegmentKey, Key: "users"}, segments[0])
	assert.Equal(t, PathSegment{Kind: SegmentIndex, Index: 0}, segments[1])
	assert.Equal(t, PathSegment{Kind: SegmentKey, Key: "profile"}, segments[2])
	assert.Equal(t, PathSegment{Kind: SegmentKey, Key: "tags"}, segments[3])
	assert.Equal(t, PathSegment{Kind: SegmentIndex, Index: 12}, segments[4])
}

func TestParsePathEmpty(t *testing.T) {
	segments, err := ParsePath("")
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParsePathErrors(t *testing.T) {
	for _, path := range []string{"a..b", "a.", "a[", "a[x]", "a[-1]", "a]b"} {
		_, err := ParsePath(path)
		require.Error(t, err, "path: %q", path)
		assert.ErrorIs(t, err, ErrInvalidArgument, "path: %q", path)
	}
}

func TestJoinAndIndexPath(t *testing.T) {
	assert.Equal(t, "users", joinPath("", "users"))
	assert.Equal(t, "users.name", joinPath("users", "name"))
	assert.Equal(t, "users[3]", indexPath("users", 3))
	assert.Equal(t, "[0]", indexPath("", 0))
}

func TestValueAtPath(t *testing.T) {
	root := map[string]any{
		"users": []any{
			map[string]any{"name": "Alice", "tags": []any{"a", "b"}},
		},
		"count": float64(1),
	}

	v, ok := valueAtPath(root, "users[0].name")
	require.True(t, ok)
	assert.Equal(t, "Alice", v)

	v, ok = valueAtPath(root, "users[0].tags[1]")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = valueAtPath(root, "users[1].name")
	assert.False(t, ok)
	_, ok = valueAtPath(root, "count.inner")
	assert.False(t, ok)
	_, ok = valueAtPath(root, "missing")
	assert.False(t, ok)
}

func TestWalkLeaves(t *testing.T) {
	root := map[string]any{
		"b": map[string]any{"y": float64(2), "x": float64(1)},
		"a": []any{"first", map[string]any{"k": true}},
		"empty_obj": map[string]any{},
		"empty_arr": []any{},
	}

	var paths []string
	walkLeaves(root, 0, nil, func(path string, value any) {
		paths = append(paths, path)
	})
	assert.Equal(t, []string{
		"a[0]", "a[1].k",
		"b.x", "b.y",
		"empty_arr",
		"empty_obj",
	}, paths, "leaves enumerate depth-first in sorted key order")
}

func TestWalkLeavesPrunesBranches(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{"x": float64(1)},
		"b": map[string]any{"y": float64(2)},
	}

	var asked, paths []string
	walkLeaves(root, 0, func(path string) bool {
		asked = append(asked, path)
		return path != "b"
	}, func(path string, value any) {
		paths = append(paths, path)
	})

	assert.Equal(t, []string{"a.x"}, paths)
	assert.Contains(t, asked, "b")
	assert.NotContains(t, asked, "b.y", "a pruned branch is never entered")
}

func TestWalkLeavesDepthBound(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{"b": map[string]any{"c": float64(1)}},
	}

	visited := map[string]any{}
	walkLeaves(root, 2, nil, func(path string, value any) {
		visited[path] = value
	})

	assert.Equal(t, map[string]any{
		"a.b": map[string]any{"c": float64(1)},
	}, visited, "a container at the depth bound is one leaf")
}

func TestStripIndexes(t *testing.T) {
	assert.Equal(t, "users.name", stripIndexes("users[0].name"))
	assert.Equal(t, "a.b.c", stripIndexes("a[1].b[22].c"))
	assert.Equal(t, "plain.path", stripIndexes("plain.path"))
}

func TestLastSegmentName(t *testing.T) {
	assert.Equal(t, "name", lastSegmentName("users[0].name"))
	assert.Equal(t, "b", lastSegmentName("a.b[2]"))
	assert.Equal(t, "c", lastSegmentName("a.b.c"))
	assert.Equal(t, "solo", lastSegmentName("solo"))
}
