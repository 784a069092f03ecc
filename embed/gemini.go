package embed

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

func init() {
	RegisterProvider("gemini", newGeminiEmbedder)
	RegisterProvider("vertex", newGeminiEmbedder)
}

// geminiEmbedder wraps google.golang.org/genai, which transparently
// targets either the Gemini Developer API or Vertex AI depending on the
// ambient GOOGLE_GENAI_USE_VERTEXAI environment variable.
type geminiEmbedder struct {
	client *genai.Client
	model  string
	dim    int
}

func newGeminiEmbedder(model string) (Embedder, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	dim := knownDimensions["gemini:"+model]
	if dim == 0 {
		dim = 768
	}

	return &geminiEmbedder{client: client, model: model, dim: dim}, nil
}

func (e *geminiEmbedder) Dimensions() int { return e.dim }

func (e *geminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	out := make([][]float32, len(resp.Embeddings))

	for i, embedding := range resp.Embeddings {
		out[i] = embedding.Values
	}

	if len(out) > 0 {
		e.dim = len(out[0])
	}

	return out, nil
}
