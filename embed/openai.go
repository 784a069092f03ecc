package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

func init() {
	RegisterProvider("openai", newOpenAIEmbedder)
	RegisterProvider("azure", newOpenAIEmbedder)
}

// openAIEmbedder serves both the openai and azure provider names with the
// same OpenAI client. The client reads its API key from the standard
// OPENAI_* environment variables and is pinned to the production OpenAI
// endpoint (WithEnvironmentProduction); no Azure endpoint or AZURE_*
// variable is consulted.
type openAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

func newOpenAIEmbedder(model string) (Embedder, error) {
	client := openai.NewClient(option.WithEnvironmentProduction())

	dim := knownDimensions["openai:"+model]
	if dim == 0 {
		dim = 1536
	}

	return &openAIEmbedder{client: &client, model: model, dim: dim}, nil
}

func (e *openAIEmbedder) Dimensions() int { return e.dim }

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	out := make([][]float32, len(resp.Data))

	for i, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for j, f := range item.Embedding {
			vec[j] = float32(f)
		}

		out[i] = vec
	}

	if len(out) > 0 {
		e.dim = len(out[0])
	}

	return out, nil
}
