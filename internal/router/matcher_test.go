package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobToRegex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern  string
		expected string
	}{
		{pattern: "/api/pagos/**", expected: `^/api/pagos(?:/.*)?$`},
		{pattern: "/a/*/b", expected: `^/a/[^/]*/b$`},
		{pattern: "/a/**/b", expected: `^/a/.*/b$`},
		{pattern: "/m/{id}", expected: `^/m/(?P<id>[^/]+)$`},
		{pattern: "/swagger-ui.html", expected: `^/swagger-ui\.html$`},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, globToRegex(tt.pattern))
		})
	}
}

func TestGlobMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		matched bool
	}{
		{pattern: "/api/miembros/**", path: "/api/miembros", matched: true},
		{pattern: "/api/miembros/**", path: "/api/miembros/", matched: true},
		{pattern: "/api/miembros/**", path: "/api/miembros/1/2", matched: true},
		{pattern: "/api/miembros/**", path: "/api/miembrosx", matched: false},
		{pattern: "/api/*/info", path: "/api/clases/info", matched: true},
		{pattern: "/api/*/info", path: "/api/clases/x/info", matched: false},
		{pattern: "/fallback", path: "/fallback", matched: true},
		{pattern: "/fallback", path: "/fallback/x", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			m, err := NewGlobMatcher(tt.pattern)
			require.NoError(t, err)
			matched, _ := m.Match(tt.path)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, "glob", m.Type())
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func TestGlobMatcher_LiteralPrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/api/pagos/**":          "/api/pagos/",
		"/api/pagos/procesar/**": "/api/pagos/procesar/",
		"/m/{id}":                "/m/",
		"/fallback":              "/fallback",
	}
	for pattern, expected := range tests {
		m, err := NewGlobMatcher(pattern)
		require.NoError(t, err)
		assert.Equal(t, expected, m.LiteralPrefix(), pattern)
	}
}

func TestRegexMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewRegexMatcher(`^/api/clases/(?<segment>.*)$`)
	require.NoError(t, err)

	matched, params := m.Match("/api/clases/yoga")
	assert.True(t, matched)
	assert.Equal(t, "yoga", params["segment"])
	assert.Equal(t, "regex", m.Type())

	matched, params = m.Match("/api/miembros/1")
	assert.False(t, matched)
	assert.Nil(t, params)

	_, err = NewRegexMatcher("(")
	assert.Error(t, err)
}

func TestExactMatcher(t *testing.T) {
	t.Parallel()

	m := NewExactMatcher("/fallback")
	matched, _ := m.Match("/fallback")
	assert.True(t, matched)
	matched, _ = m.Match("/fallback/")
	assert.False(t, matched)
	assert.Equal(t, "exact", m.Type())
	assert.Equal(t, "/fallback", m.Pattern())
}

func TestMethodMatcher(t *testing.T) {
	t.Parallel()

	var nilMatcher *MethodMatcher
	assert.True(t, nilMatcher.Match("DELETE"))
	assert.Zero(t, nilMatcher.Len())

	m := NewMethodMatcher([]string{"post"})
	assert.True(t, m.Match("POST"))
	assert.True(t, m.Match("post"))
	assert.False(t, m.Match("GET"))
	assert.Equal(t, 1, m.Len())

	wildcard := NewMethodMatcher([]string{"*"})
	assert.True(t, wildcard.Match("PATCH"))
	assert.Zero(t, wildcard.Len())
}

func TestNewPathMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewPathMatcher("/x", "", "")
	require.NoError(t, err)
	assert.Equal(t, "exact", m.Type())

	m, err = NewPathMatcher("", "/x/**", "")
	require.NoError(t, err)
	assert.Equal(t, "glob", m.Type())

	m, err = NewPathMatcher("", "", "^/x$")
	require.NoError(t, err)
	assert.Equal(t, "regex", m.Type())

	m, err = NewPathMatcher("", "", "")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRewriter(t *testing.T) {
	t.Parallel()

	rw, err := NewRewriter("/api/clases/(?<segment>.*)", "/${segment}")
	require.NoError(t, err)

	path, params := rw.Rewrite("/api/clases/foo")
	assert.Equal(t, "/foo", path)
	assert.Equal(t, "foo", params["segment"])

	path, params = rw.Rewrite("/otra/ruta")
	assert.Equal(t, "/otra/ruta", path)
	assert.Nil(t, params)

	var nilRewriter *Rewriter
	path, _ = nilRewriter.Rewrite("/same")
	assert.Equal(t, "/same", path)

	empty, err := NewRewriter("^/strip$", "")
	require.NoError(t, err)
	path, _ = empty.Rewrite("/strip")
	assert.Equal(t, "/", path)
}
