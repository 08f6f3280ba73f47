package driving

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// IndexAdmin manages the published vector index.
type IndexAdmin interface {
	// Stats summarises the published index.
	Stats() domain.IndexStats

	// Load publishes the persisted index. Failure leaves retrieval degraded.
	Load(ctx context.Context) error

	// Rebuild reads, chunks and embeds sourceDir, then saves and publishes a new index.
	// Requests in flight keep reading the previous index.
	Rebuild(ctx context.Context, sourceDir string) (*domain.RebuildReport, error)

	// RebuildFromProcessed rebuilds the index from the stored processed corpus.
	RebuildFromProcessed(ctx context.Context) (*domain.RebuildReport, error)
}
