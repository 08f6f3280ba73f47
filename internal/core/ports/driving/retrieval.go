package driving

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// RetrievalService finds policy passages relevant to a query.
// Retrieval never fails: an unavailable index or embedding yields no results.
type RetrievalService interface {
	// Retrieve returns the passages most similar to query.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) []domain.SearchResult

	// GenerateCitations converts results scoring at least minScore into citations.
	GenerateCitations(results []domain.SearchResult, minScore float64) []domain.Citation

	// ContextForLLM packs the best passages into a context of at most maxLength characters.
	// Only opts.K and opts.FilterDocument are used; the configured retrieval threshold applies.
	ContextForLLM(ctx context.Context, query string, opts domain.RetrieveOptions, maxLength int) domain.RetrievalContext

	// SearchByTopic retrieves passages for a known policy topic.
	SearchByTopic(ctx context.Context, topic string) ([]domain.SearchResult, error)
}
