package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	opts := DefaultNormalizeOptions()

	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips fragment", "https://example.com/docs#section", "https://example.com/docs"},
		{"lowercases scheme and host", "HTTPS://Example.COM/Docs", "https://example.com/Docs"},
		{"strips trailing slash", "https://example.com/docs/", "https://example.com/docs"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"collapses index.html", "https://example.com/docs/index.html", "https://example.com/docs"},
		{"keeps query by default", "https://example.com/docs?page=2", "https://example.com/docs?page=2"},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, NormalizeURL(tc.input, opts))
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	opts := DefaultNormalizeOptions()

	urls := []string{
		"https://example.com/docs/index.html#frag",
		"HTTPS://EXAMPLE.COM/a/b/",
		"https://example.com",
	}

	for _, raw := range urls {
		once := NormalizeURL(raw, opts)
		twice := NormalizeURL(once, opts)
		assert.Equal(t, once, twice, "NormalizeURL should be idempotent for %q", raw)
	}
}

func TestStripDefaultPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", stripDefaultPort("https", "example.com:443"))
	assert.Equal(t, "example.com", stripDefaultPort("http", "example.com:80"))
	assert.Equal(t, "example.com:8080", stripDefaultPort("http", "example.com:8080"))
}
