package driven

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// VectorIndex provides exact similarity search over chunk embeddings.
// Vectors are L2-normalised on insertion, so inner product equals cosine similarity.
// The index is append/rebuild only; single vectors are never deleted.
type VectorIndex interface {
	// Create replaces the index contents with the given embeddings.
	// Embeddings are aligned 1:1 with chunks and normalised in place.
	// Returns ErrInvalidInput when embeddings is empty, the counts differ,
	// or a vector has the wrong dimension.
	Create(ctx context.Context, embeddings [][]float32, chunks []domain.Chunk, documents map[string]domain.Document) error

	// Search returns up to k results scoring at least threshold, best first.
	// Equal scores keep insertion order. An empty index returns no results.
	Search(ctx context.Context, query []float32, k int, threshold float64) ([]domain.SearchResult, error)

	// SearchWithFilter over-fetches 3*k candidates, applies filter and truncates to k.
	// It is not exhaustive: matches beyond the over-fetch window are missed.
	SearchWithFilter(ctx context.Context, query []float32, filter domain.ChunkFilter, k int, threshold float64) ([]domain.SearchResult, error)

	// Stats summarises the index, reporting not_initialized when empty.
	Stats() domain.IndexStats

	// Dimensions returns the vector size.
	Dimensions() int

	// Save persists the index to its directory.
	Save(ctx context.Context) error

	// Load replaces the contents with the persisted index.
	// Returns ErrNotFound when nothing is persisted and ErrMalformedIndex when
	// the files cannot be decoded; the index is left empty in both cases.
	Load(ctx context.Context) error

	// Exists reports whether a persisted index is present.
	Exists() bool

	// Clear empties the index.
	Clear()

	// Close releases resources.
	Close() error
}

// VectorIndexFactory builds a new, empty index of the given dimension.
// Rebuilds fill a fresh index and publish it only once complete.
type VectorIndexFactory func(dimensions int) (VectorIndex, error)
