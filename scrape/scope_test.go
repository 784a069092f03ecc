package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeSubpages(t *testing.T) {
	t.Parallel()

	checker, err := newScopeChecker(ScopeSubpages, "https://example.com/docs/guide")
	require.NoError(t, err)

	assert.True(t, checker.InScope("https://example.com/docs/guide/page"))
	assert.False(t, checker.InScope("https://example.com/docs/other"), "sibling of the base directory is out of scope")
	assert.False(t, checker.InScope("https://example.com/blog/post"))
	assert.False(t, checker.InScope("https://other.com/docs/guide/page"))
	assert.False(t, checker.InScope("http://example.com/docs/guide/page"), "scheme mismatch")
}

func TestScopeHostname(t *testing.T) {
	t.Parallel()

	checker, err := newScopeChecker(ScopeHostname, "https://docs.example.com/guide")
	require.NoError(t, err)

	assert.True(t, checker.InScope("https://docs.example.com/anything"))
	assert.False(t, checker.InScope("https://www.example.com/anything"))
}

func TestScopeDomain(t *testing.T) {
	t.Parallel()

	checker, err := newScopeChecker(ScopeDomain, "https://docs.example.com/guide")
	require.NoError(t, err)

	assert.True(t, checker.InScope("https://www.example.com/anything"))
	assert.True(t, checker.InScope("https://api.example.com/anything"))
	assert.False(t, checker.InScope("https://example.org/anything"))
}

func TestBaseDirectory(t *testing.T) {
	t.Parallel()

	cases := []struct{ path, expected string }{
		{"", "/"},
		{"/docs/", "/docs/"},
		{"/docs/guide", "/docs/"},
		{"/docs/guide.html", "/docs/"},
		{"/guide.html", "/"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, baseDirectory(tc.path), "path=%q", tc.path)
	}
}
