package streamjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFilter(t *testing.T, config FilterConfig) *FieldFilter {
	t.Helper()
	f, err := NewFieldFilter(config)
	require.NoError(t, err)
	return f
}

func TestNewFieldFilterValidation(t *testing.T) {
	_, err := NewFieldFilter(FilterConfig{Mode: "sideways"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = NewFieldFilter(FilterConfig{IncludePaths: []string{"  "}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = NewFieldFilter(FilterConfig{
		IncludePaths: []string{"users"},
		ExcludePaths: []string{"users"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestFieldFilterDisabledIncludesEverything(t *testing.T) {
	f := mustFilter(t, FilterConfig{Enabled: false, IncludePaths: []string{"users"}})
	assert.True(t, f.ShouldIncludePath("anything.at.all"))
}

func TestFieldFilterWildcardInclude(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"users.*"},
		Mode:         FilterInclude,
	})

	// "xxx.*" covers the field itself, indexed elements, and descendants.
	assert.True(t, f.ShouldIncludePath("users"))
	assert.True(t, f.ShouldIncludePath("users[0]"))
	assert.True(t, f.ShouldIncludePath("users[0].name"))
	assert.True(t, f.ShouldIncludePath("users.count"))

	assert.False(t, f.ShouldIncludePath("admin"))
	assert.False(t, f.ShouldIncludePath("settings.theme"))
}

func TestFieldFilterExcludeWildcard(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		ExcludePaths: []string{"*.password"},
		Mode:         FilterExclude,
	})

	assert.False(t, f.ShouldIncludePath("users[0].password"))
	assert.False(t, f.ShouldIncludePath("account.password"))
	assert.True(t, f.ShouldIncludePath("users[0].name"))
	assert.True(t, f.ShouldIncludePath("password_hint"))
}

func TestFieldFilterExcludeVetoesInclude(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"users.*"},
		ExcludePaths: []string{"*.password"},
		Mode:         FilterInclude,
	})

	assert.True(t, f.ShouldIncludePath("users[0].name"))
	assert.False(t, f.ShouldIncludePath("users[0].password"))
}

func TestFieldFilterMatchPredicates(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"exact", "users[0].name", "users[0].name", true},
		{"suffix field name", "name", "users[0].name", true},
		{"array element field", "email", "users[3].email", true},
		{"leading array field", "users", "users[3].email", true},
		{"dotted with indices stripped", "users.name", "users[2].name", true},
		{"embedded nested name", "profile.bio", "users[0].profile.bio", true},
		{"unrelated", "address", "users[0].name", false},
		{"substring without boundary", "ame", "users[0].name", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustFilter(t, FilterConfig{
				Enabled:      true,
				IncludePaths: []string{tt.pattern},
				Mode:         FilterInclude,
			})
			assert.Equal(t, tt.want, f.ShouldIncludePath(tt.path))
		})
	}
}

func TestFieldFilterExactMatchMode(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"users.name"},
		Mode:         FilterInclude,
		ExactMatch:   true,
	})

	assert.True(t, f.ShouldIncludePath("users.name"))
	assert.False(t, f.ShouldIncludePath("users[0].name"), "index stripping is off in exact mode")
	assert.False(t, f.ShouldIncludePath("name"))
}

func TestShouldProcessBranchIncludeMode(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"users[0].profile.bio"},
		Mode:         FilterInclude,
	})

	// Ancestors of the target must stay traversable.
	assert.True(t, f.shouldProcessBranch("users"))
	assert.True(t, f.shouldProcessBranch("users[0]"))
	assert.True(t, f.shouldProcessBranch("users[0].profile"))
	// Descendants of the target too.
	assert.True(t, f.shouldProcessBranch("users[0].profile.bio"))
	// Unrelated branches can be pruned.
	assert.False(t, f.shouldProcessBranch("settings"))
}

func TestShouldProcessBranchExcludeModeNeverPrunes(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		ExcludePaths: []string{"secrets"},
		Mode:         FilterExclude,
	})
	assert.True(t, f.shouldProcessBranch("secrets"))
	assert.True(t, f.shouldProcessBranch("anything"))
}

func TestShouldProcessBranchWildcardDescends(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"*.name"},
		Mode:         FilterInclude,
	})
	assert.True(t, f.shouldProcessBranch("users[0].profile"))
}

func TestFieldFilterWithMatchCache(t *testing.T) {
	f := mustFilter(t, FilterConfig{
		Enabled:      true,
		IncludePaths: []string{"users.*"},
		Mode:         FilterInclude,
	})
	cache, err := newMatchCache(16)
	require.NoError(t, err)
	f.attachCache(cache)

	assert.True(t, f.ShouldIncludePath("users[0].name"))
	assert.True(t, f.ShouldIncludePath("users[0].name"))

	stats := cache.stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
