package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder computes embeddings through an OpenAI-compatible API.
type OpenAIEmbedder struct {
	impl       *embeddings.EmbedderImpl
	model      string
	dimensions int
}

// NewOpenAIEmbedder connects to an OpenAI-compatible endpoint. baseURL may be
// empty for the default API host.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return &OpenAIEmbedder{impl: impl, model: model, dimensions: dimensions}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if err := checkDimensions(e.model, e.dimensions, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("openai returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if err := checkDimensions(e.model, e.dimensions, vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedder) ModelID() string { return "openai/" + e.model }

func (e *OpenAIEmbedder) Close() error { return nil }
