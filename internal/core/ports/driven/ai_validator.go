package driven

import "github.com/custodia-labs/riskpilot/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved.
// Offline providers always validate; cloud providers are pinged.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM validates an answer generator configuration.
	ValidateLLM(config *domain.LLMSettings) error
}
