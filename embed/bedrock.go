package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

func init() {
	RegisterProvider("bedrock", newBedrockEmbedder)
	RegisterProvider("sagemaker", newBedrockEmbedder)
}

type bedrockEmbedder struct {
	client *bedrockruntime.Client
	model  string
	dim    int
}

func newBedrockEmbedder(model string) (Embedder, error) {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("bedrock aws config: %w", err)
	}

	dim := knownDimensions["bedrock:"+model]
	if dim == 0 {
		dim = 1024
	}

	return &bedrockEmbedder{
		client: bedrockruntime.NewFromConfig(cfg),
		model:  model,
		dim:    dim,
	}, nil
}

func (e *bedrockEmbedder) Dimensions() int { return e.dim }

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *bedrockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for i, text := range texts {
		payload, err := json.Marshal(titanEmbedRequest{InputText: text})
		if err != nil {
			return nil, fmt.Errorf("bedrock request encode: %w", err)
		}

		resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     &e.model,
			Body:        payload,
			ContentType: stringPtr("application/json"),
		})
		if err != nil {
			return nil, fmt.Errorf("bedrock invoke: %w", err)
		}

		var parsed titanEmbedResponse
		if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("bedrock response decode: %w", err)
		}

		out[i] = parsed.Embedding
	}

	if len(out) > 0 && len(out[0]) > 0 {
		e.dim = len(out[0])
	}

	return out, nil
}

func stringPtr(s string) *string { return &s }
