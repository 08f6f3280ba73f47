// Package local provides an offline embedding service based on feature hashing.
//
// Lower-cased word unigrams and bigrams are hashed with xxhash into a fixed
// number of signed buckets. The result is deterministic and needs no network,
// which makes it suitable for demos, tests and air-gapped deployments.
package local

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-unigram-bigram"
	DefaultDimensions = 384
)

// bigramWeight scales bigram features relative to unigrams.
const bigramWeight = 0.5

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
	model      string
}

// NewEmbeddingService creates a hashing embedder. Non-positive dimensions use the default.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions, model: DefaultModel}
}

// Embed returns the L2-normalised hashed feature vector of text.
// Text without any word yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.embed(text), nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = s.embed(text)
	}
	return out, nil
}

func (s *EmbeddingService) embed(text string) []float32 {
	acc := make([]float64, s.dimensions)
	words := tokenize(text)

	for i, w := range words {
		s.add(acc, w, 1)
		if i > 0 {
			s.add(acc, words[i-1]+" "+w, bigramWeight)
		}
	}

	var sum float64
	for _, x := range acc {
		sum += x * x
	}
	vec := make([]float32, s.dimensions)
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i, x := range acc {
		vec[i] = float32(x / norm)
	}
	return vec
}

// add hashes feature into a bucket; the top hash bit picks the sign.
func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(s.dimensions)
	if h>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds; there is nothing to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
