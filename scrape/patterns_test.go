package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternFilterDefaultExcludes(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter(nil, nil)

	assert.False(t, filter.Matches("https://example.com/project/CHANGELOG.md"))
	assert.False(t, filter.Matches("https://example.com/project/dist/bundle.js"))
	assert.True(t, filter.Matches("https://example.com/project/docs/guide"))
}

func TestPatternFilterExplicitEmptyExcludeDisablesDefaults(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter(nil, []string{})

	assert.True(t, filter.Matches("https://example.com/project/CHANGELOG.md"))
}

func TestPatternFilterInclude(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter([]string{"**/guide/**"}, []string{})

	assert.True(t, filter.Matches("https://example.com/docs/guide/intro"))
	assert.False(t, filter.Matches("https://example.com/docs/reference/intro"))
}

func TestPatternFilterExcludeWinsOverInclude(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter([]string{"**"}, []string{"**/legacy/**"})

	assert.False(t, filter.Matches("https://example.com/docs/legacy/page"))
	assert.True(t, filter.Matches("https://example.com/docs/current/page"))
}

func TestPatternFilterRegex(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter(nil, []string{`/\d{4}/\d{2}/`})

	assert.False(t, filter.Matches("https://example.com/blog/2019/03/post"))
	assert.True(t, filter.Matches("https://example.com/blog/latest/post"))
}

func TestPatternFilterGitHubFile(t *testing.T) {
	t.Parallel()

	filter := NewPatternFilter(nil, nil)

	assert.False(t, filter.Matches("github-file://owner/repo/refs/heads/main/LICENSE"))
	assert.True(t, filter.Matches("github-file://owner/repo/refs/heads/main/docs/guide.md"))
}
