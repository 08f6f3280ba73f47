package driven

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// PostProcessor is one step in turning a policy document into chunks.
// The first step of a pipeline receives nil and creates chunks from
// doc.Content; later steps may rewrite or drop the chunks they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline produces the indexable chunks of a document.
// Returned chunks carry final ids, positions and TotalChunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
