package driven

import (
	"context"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// AnswerGenerator produces natural-language answers.
// Implementations may include:
//   - OpenAI chat completions
//   - Offline templates for demos and tests
type AnswerGenerator interface {
	// GenerateWithContext answers query grounded on the retrieved context.
	GenerateWithContext(ctx context.Context, query, context string, citations []domain.Citation) (string, error)

	// GenerateFallback answers query when nothing relevant was retrieved.
	GenerateFallback(ctx context.Context, query string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string
}
