package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentycs/docbrew/fetch"
)

func TestMarkdownPipelineCanProcess(t *testing.T) {
	t.Parallel()

	pipeline := NewMarkdownPipeline()

	assert.True(t, pipeline.CanProcess(&fetch.RawContent{MimeType: "text/markdown"}))
	assert.True(t, pipeline.CanProcess(&fetch.RawContent{MimeType: "application/octet-stream", Source: "https://example.com/a.md"}))
	assert.False(t, pipeline.CanProcess(&fetch.RawContent{MimeType: "text/html", Source: "https://example.com/a.html"}))
}

func TestMarkdownPipelineExtractsH1Title(t *testing.T) {
	t.Parallel()

	pipeline := NewMarkdownPipeline()

	raw := &fetch.RawContent{
		Content:  []byte("# Getting Started\n\nSome body text with a [link](guide).\n"),
		MimeType: "text/markdown",
		Source:   "https://example.com/docs/intro.md",
	}

	processed, err := pipeline.Process(context.Background(), raw, Options{BaseURL: raw.Source})
	require.NoError(t, err)

	assert.Equal(t, "Getting Started", processed.Metadata["title"])
	require.Len(t, processed.Links, 1)
	assert.Equal(t, "https://example.com/docs/guide", processed.Links[0])
}

func TestMarkdownPipelineFrontMatterTitleFallback(t *testing.T) {
	t.Parallel()

	pipeline := NewMarkdownPipeline()

	raw := &fetch.RawContent{
		Content:  []byte("---\ntitle: \"Install Guide\"\n---\n\nBody without a heading.\n"),
		MimeType: "text/markdown",
		Source:   "https://example.com/docs/install.md",
	}

	processed, err := pipeline.Process(context.Background(), raw, Options{BaseURL: raw.Source})
	require.NoError(t, err)

	assert.Equal(t, "Install Guide", processed.Metadata["title"])
}

func TestStripFrontMatterNoFrontMatter(t *testing.T) {
	t.Parallel()

	body, title := stripFrontMatter("# Hello\n\nworld")
	assert.Equal(t, "# Hello\n\nworld", body)
	assert.Empty(t, title)
}

func TestStripFrontMatterExtractsTitle(t *testing.T) {
	t.Parallel()

	src := "---\ntitle: My Page\nlayout: doc\n---\nBody content\n"
	body, title := stripFrontMatter(src)

	assert.Equal(t, "My Page", title)
	assert.Equal(t, "Body content\n", body)
}
