package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder computes embeddings through a local Ollama server.
type OllamaEmbedder struct {
	impl       *embeddings.EmbedderImpl
	model      string
	dimensions int
}

// NewOllamaEmbedder connects to the Ollama server at baseURL using the given
// embedding model.
func NewOllamaEmbedder(baseURL, model string, dimensions int) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &OllamaEmbedder{impl: impl, model: model, dimensions: dimensions}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if err := checkDimensions(e.model, e.dimensions, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for _, vec := range vecs {
		if err := checkDimensions(e.model, e.dimensions, vec); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *OllamaEmbedder) Dimensions() int { return e.dimensions }

func (e *OllamaEmbedder) ModelID() string { return "ollama/" + e.model }

func (e *OllamaEmbedder) Close() error { return nil }
