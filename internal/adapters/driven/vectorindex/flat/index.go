// Package flat provides an exact inner-product vector index persisted to a directory.
package flat

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/logger"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// overFetchFactor is the candidate multiplier used by filtered search.
const overFetchFactor = 3

// unknownDocument names results whose document metadata is missing.
const unknownDocument = "Unknown"

// Index is an exact flat index. Every search scans all vectors.
// Vectors are stored normalised in one contiguous slice, row-major.
type Index struct {
	mu        sync.RWMutex
	dir       string
	dim       int
	vectors   []float32
	chunks    []domain.Chunk
	documents map[string]domain.Document
}

// New creates an empty index persisted under dir.
func New(dir string, dimensions int) *Index {
	return &Index{
		dir:       dir,
		dim:       dimensions,
		documents: make(map[string]domain.Document),
	}
}

// NewFactory returns a factory building fresh indexes persisted under dir.
func NewFactory(dir string) driven.VectorIndexFactory {
	return func(dimensions int) (driven.VectorIndex, error) {
		if dimensions <= 0 {
			return nil, fmt.Errorf("%w: dimensions must be positive, got %d", domain.ErrInvalidInput, dimensions)
		}
		return New(dir, dimensions), nil
	}
}

// Dir returns the persistence directory.
func (idx *Index) Dir() string {
	return idx.dir
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

// Create replaces the index contents. Embeddings are normalised in place.
func (idx *Index) Create(ctx context.Context, embeddings [][]float32, chunks []domain.Chunk, documents map[string]domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("%w: no embeddings", domain.ErrInvalidInput)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks", domain.ErrInvalidInput, len(embeddings), len(chunks))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dim := idx.dim
	if dim == 0 {
		dim = len(embeddings[0])
	}

	vectors := make([]float32, 0, len(embeddings)*dim)
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", domain.ErrInvalidInput, i, len(e), dim)
		}
		normalize(e)
		vectors = append(vectors, e...)
	}

	docs := make(map[string]domain.Document, len(documents))
	for id, d := range documents {
		docs[id] = d.Metadata()
	}

	idx.dim = dim
	idx.vectors = vectors
	idx.chunks = append([]domain.Chunk(nil), chunks...)
	idx.documents = docs

	logger.Debug("flat index created: %d vectors, dim %d", len(chunks), dim)
	return nil
}

// Search returns up to k results with score >= threshold, best first.
func (idx *Index) Search(ctx context.Context, query []float32, k int, threshold float64) ([]domain.SearchResult, error) {
	start := time.Now()
	defer func() { telemetry.RecordSearch(false, time.Since(start)) }()

	return idx.search(ctx, query, k, threshold)
}

// SearchWithFilter over-fetches 3*k candidates, keeps those passing filter and truncates to k.
func (idx *Index) SearchWithFilter(ctx context.Context, query []float32, filter domain.ChunkFilter, k int, threshold float64) ([]domain.SearchResult, error) {
	start := time.Now()
	defer func() { telemetry.RecordSearch(true, time.Since(start)) }()

	candidates, err := idx.search(ctx, query, k*overFetchFactor, threshold)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		if len(candidates) > k {
			candidates = candidates[:k]
		}
		return candidates, nil
	}

	results := make([]domain.SearchResult, 0, k)
	for _, c := range candidates {
		if len(results) == k {
			break
		}
		if filter(c) {
			results = append(results, c)
		}
	}
	return results, nil
}

func (idx *Index) search(ctx context.Context, query []float32, k int, threshold float64) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.chunks) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrInvalidInput, len(query), idx.dim)
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	type scored struct {
		pos   int
		score float64
	}
	hits := make([]scored, 0, len(idx.chunks))
	for i := range idx.chunks {
		row := idx.vectors[i*idx.dim : (i+1)*idx.dim]
		score := dot(q, row)
		if score >= threshold {
			hits = append(hits, scored{pos: i, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		chunk := idx.chunks[h.pos]
		results[i] = domain.SearchResult{
			ChunkID:  chunk.ID,
			Score:    h.score,
			Chunk:    chunk,
			Document: idx.documentFor(chunk),
		}
	}
	return results, nil
}

// documentFor returns the chunk's document metadata (caller must hold lock).
func (idx *Index) documentFor(chunk domain.Chunk) domain.Document {
	if doc, ok := idx.documents[chunk.DocumentID]; ok {
		return doc
	}
	return domain.Document{ID: chunk.DocumentID, Name: unknownDocument}
}

// Stats summarises the index.
func (idx *Index) Stats() domain.IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.chunks) == 0 {
		return domain.NotInitializedStats()
	}
	return domain.IndexStats{
		Status:         domain.IndexStatusReady,
		TotalVectors:   len(idx.vectors) / idx.dim,
		TotalChunks:    len(idx.chunks),
		TotalDocuments: len(idx.documents),
		EmbeddingDim:   idx.dim,
		IndexSizeBytes: int64(len(idx.vectors)) * 4,
	}
}

// Exists reports whether a persisted index is present.
func (idx *Index) Exists() bool {
	_, err := os.Stat(filepath.Join(idx.dir, vectorsFile))
	return err == nil
}

// Clear empties the index. The dimension is kept.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.clear()
}

func (idx *Index) clear() {
	idx.vectors = nil
	idx.chunks = nil
	idx.documents = make(map[string]domain.Document)
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
