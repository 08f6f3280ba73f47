package driving

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// PipelineService answers questions through the guarded pipeline.
type PipelineService interface {
	// Process runs Sanitize, Retrieve, Evaluate, Generate, Validate and Audit.
	// A blank query returns ErrInvalidInput; every other request yields a
	// response, including blocked, degraded and timed-out ones.
	Process(ctx context.Context, req domain.ProcessRequest) (*domain.ProcessResponse, error)
}
