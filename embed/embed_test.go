package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSpec(t *testing.T) {
	t.Parallel()

	cases := []struct {
		spec             string
		provider, model string
	}{
		{"openai:text-embedding-3-small", "openai", "text-embedding-3-small"},
		{"text-embedding-3-small", "openai", "text-embedding-3-small"},
		{"bedrock:amazon.titan-embed-text-v2:0", "bedrock", "amazon.titan-embed-text-v2:0"},
	}

	for _, tc := range cases {
		provider, model := splitSpec(tc.spec)
		assert.Equal(t, tc.provider, provider, "spec=%q", tc.spec)
		assert.Equal(t, tc.model, model, "spec=%q", tc.spec)
	}
}

func TestDimensionForKnownModel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1536, DimensionFor("openai:text-embedding-3-small"))
	assert.Equal(t, 3072, DimensionFor("openai:text-embedding-3-large"))
	assert.Equal(t, 768, DimensionFor("gemini:text-embedding-004"))
}

func TestDimensionForUnknownModel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, DimensionFor("openai:some-future-model"))
}

func TestValidateDimension(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateDimension(1536, 1536))
	assert.Error(t, ValidateDimension(768, 1536))
}

func TestNewUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New("unknown-provider:model")
	assert.Error(t, err)
}
