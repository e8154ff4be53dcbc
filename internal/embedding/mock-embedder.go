package embedding

import (
	"context"

	"github.com/hyperjump/ronbun/pkg/utils"
)

// MockEmbedder produces deterministic pseudo-embeddings from a hash of the
// input text. It needs no model server, which makes it useful in tests and
// for exercising the pipeline offline. Vectors are unit-normalized so that
// cosine similarity behaves like the real providers.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder producing vectors of the given
// width (384 when dimensions <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	seed := HashString(text)
	vec := make([]float32, e.dimensions)
	for i := range vec {
		// xorshift64 keeps the sequence deterministic per seed.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		vec[i] = float32(int64(seed%2000)-1000) / 1000.0
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *MockEmbedder) Dimensions() int { return e.dimensions }

func (e *MockEmbedder) ModelID() string { return "mock" }

func (e *MockEmbedder) Close() error { return nil }
