package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/models"
)

const collectionName = "chunks"

// ChromemStore is a chromem-go backed Store. Vectors and chunk payloads are
// persisted under dir/db and survive restarts; dir/manifest.json pins the
// embedding model.
type ChromemStore struct {
	dir        string
	modelID    string
	dimensions int
	logger     *zap.Logger

	mu         sync.Mutex
	db         *chromem.DB
	collection *chromem.Collection
}

// Option configures a ChromemStore.
type Option func(*ChromemStore)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *ChromemStore) { s.logger = logger }
}

// NewChromemStore opens (or creates) the persistent store in dir for the
// given embedding model. Opening a store built by a different model fails.
func NewChromemStore(dir, modelID string, dimensions int, opts ...Option) (*ChromemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if err := checkManifest(dir, modelID, dimensions); err != nil {
		return nil, err
	}
	db, err := chromem.NewPersistentDB(filepath.Join(dir, "db"), false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	s := &ChromemStore{
		dir:        dir,
		modelID:    modelID,
		dimensions: dimensions,
		logger:     zap.NewNop(),
		db:         db,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.collection, err = db.GetOrCreateCollection(collectionName, map[string]string{"model": modelID}, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	return s, nil
}

// Clear drops and recreates the chunk collection.
func (s *ChromemStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, map[string]string{"model": s.modelID}, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = col
	s.logger.Debug("vector store cleared")
	return nil
}

// Upsert indexes chunks with their vectors, one vector per chunk.
func (s *ChromemStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		if s.dimensions > 0 && len(vectors[i]) != s.dimensions {
			return fmt.Errorf("chunk %s: vector has %d dims, store expects %d", ch.ID, len(vectors[i]), s.dimensions)
		}
		docs[i] = chromem.Document{
			ID:        ch.ID,
			Content:   ch.Text,
			Embedding: vectors[i],
			Metadata:  encodeMetadata(&ch),
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Query returns up to k results ranked by descending cosine similarity, ties
// broken by ascending chunk ID.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int) ([]*models.RetrievalResult, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	col := s.collection
	s.mu.Unlock()

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	hits, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	results := make([]*models.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := decodeMetadata(hit.ID, hit.Content, hit.Metadata)
		if err != nil {
			return nil, err
		}
		results = append(results, &models.RetrievalResult{
			Chunk:      chunk,
			Similarity: float64(hit.Similarity),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	for i, r := range results {
		r.Rank = i + 1
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *ChromemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection.Count()
}

// Close releases the store. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error { return nil }

func encodeMetadata(ch *models.Chunk) map[string]string {
	pages := make([]string, len(ch.Pages))
	for i, p := range ch.Pages {
		pages[i] = strconv.Itoa(p)
	}
	return map[string]string{
		"document_id": ch.DocumentID,
		"index":       strconv.Itoa(ch.Index),
		"pages":       strings.Join(pages, ","),
		"type":        string(ch.Type),
	}
}

func decodeMetadata(id, content string, meta map[string]string) (*models.Chunk, error) {
	chunk := &models.Chunk{
		ID:         id,
		DocumentID: meta["document_id"],
		Text:       content,
		Type:       models.BlockType(meta["type"]),
	}
	if v := meta["index"]; v != "" {
		idx, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: bad index metadata %q", id, v)
		}
		chunk.Index = idx
	}
	if v := meta["pages"]; v != "" {
		for _, part := range strings.Split(v, ",") {
			p, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("chunk %s: bad pages metadata %q", id, v)
			}
			chunk.Pages = append(chunk.Pages, p)
		}
	}
	return chunk, nil
}
