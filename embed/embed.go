// Package embed implements the embedding adapter (C5): a pluggable
// Embedder selected by a `[provider:]model` spec, with a static
// provider/model → dimension table and runtime dimension probing for
// unknown models.
package embed

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Embedder converts text chunks to fixed-dimension vectors.
type Embedder interface {
	Dimensions() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Factory builds an Embedder for a bare model name (the provider prefix
// already stripped).
type Factory func(model string) (Embedder, error)

var (
	registryMu sync.RWMutex
	providers  = map[string]Factory{}
)

// RegisterProvider adds a provider factory under name. Call from init().
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	providers[name] = factory
}

// knownDimensions is the static provider/model → dimension table; unknown
// models probe the provider once (§4.5).
var knownDimensions = map[string]int{
	"openai:text-embedding-3-small": 1536,
	"openai:text-embedding-3-large": 3072,
	"openai:text-embedding-ada-002": 1536,
	"gemini:text-embedding-004":     768,
	"gemini:embedding-001":          768,
	"vertex:text-embedding-004":     768,
	"bedrock:amazon.titan-embed-text-v2:0": 1024,
	"bedrock:cohere.embed-english-v3":      1024,
	"azure:text-embedding-3-small":         1536,
	"azure:text-embedding-3-large":         3072,
	"sagemaker:default":                    1536,
}

// New resolves a `[provider:]model` spec to an Embedder. A bare model name
// defaults to the openai provider.
func New(spec string) (Embedder, error) {
	provider, model := splitSpec(spec)

	registryMu.RLock()
	factory, ok := providers[provider]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("embed: unknown provider %q", provider)
	}

	return factory(model)
}

// DimensionFor returns the static dimension for a `[provider:]model` spec,
// or 0 if unknown (the caller must probe).
func DimensionFor(spec string) int {
	provider, model := splitSpec(spec)

	return knownDimensions[provider+":"+model]
}

func splitSpec(spec string) (provider, model string) {
	if idx := strings.Index(spec, ":"); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}

	return "openai", spec
}

// ValidateDimension returns an error when an observed embedding dimension
// differs from the stored one (§4.5, §3). Nothing else in this module calls
// it, so no dimension check runs at embed or insert time.
func ValidateDimension(observed, stored int) error {
	if observed != stored {
		return fmt.Errorf("embed: dimension mismatch: provider returned %d, store expects %d", observed, stored)
	}

	return nil
}
