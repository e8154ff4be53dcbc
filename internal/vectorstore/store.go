// Package vectorstore persists chunk embeddings and serves similarity
// queries. The store is the sole source of truth for indexed chunks.
package vectorstore

import (
	"context"

	"github.com/hyperjump/ronbun/internal/models"
)

// Store is the vector index contract. Implementations must rank query
// results by descending similarity with ties broken by ascending chunk ID,
// so identical corpora always answer identically.
type Store interface {
	// Clear removes every indexed chunk.
	Clear(ctx context.Context) error

	// Upsert indexes chunks with their vectors. Re-upserting an existing
	// chunk ID replaces it.
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error

	// Query returns the k most similar chunks to vector, ranked from 1.
	// Fewer than k indexed chunks yield fewer results.
	Query(ctx context.Context, vector []float32, k int) ([]*models.RetrievalResult, error)

	// Count returns the number of indexed chunks.
	Count() int

	// Close flushes and releases the store.
	Close() error
}
