package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/postprocessors/chunker"
)

// NewDefaultPipeline builds the chunking pipeline from settings.
// A non-positive chunk size, or an overlap outside [0, chunk size), is
// ErrInvalidInput rather than silently corrected.
func NewDefaultPipeline(settings domain.ChunkingSettings) (*Pipeline, error) {
	if settings.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidInput, settings.ChunkSize)
	}
	if settings.ChunkOverlap < 0 || settings.ChunkOverlap >= settings.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)",
			domain.ErrInvalidInput, settings.ChunkOverlap, settings.ChunkSize)
	}

	return NewPipeline(chunker.New(
		chunker.WithChunkSize(settings.ChunkSize),
		chunker.WithOverlap(settings.ChunkOverlap),
	)), nil
}
