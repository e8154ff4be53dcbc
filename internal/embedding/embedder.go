// Package embedding computes dense vector representations of text via an
// external model server, with an LRU cache in front.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/hyperjump/ronbun/internal/config"
)

// Embedder maps text to fixed-dimension vectors. Implementations must be
// deterministic for identical inputs so that re-ingesting unchanged documents
// produces identical vectors.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the width of the vectors this embedder produces.
	Dimensions() int

	// ModelID identifies the backing model. Stores refuse to mix vectors
	// from different model IDs.
	ModelID() string

	// Close releases any resources held by the embedder.
	Close() error
}

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache
// when cfg.CacheSize > 0.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		base Embedder
		err  error
	)
	switch cfg.Provider {
	case "ollama":
		base, err = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case "openai":
		base, err = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions)
	case "mock":
		base = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(base, cfg.CacheSize), nil
	}
	return base, nil
}

// checkDimensions verifies a returned vector against the configured width.
// A zero want skips the check.
func checkDimensions(model string, want int, vec []float32) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("model %s returned %d-dim vector, want %d", model, len(vec), want)
	}
	return nil
}

// HashString returns a stable 64-bit hash of s, used by the mock embedder
// and cache keys.
func HashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
