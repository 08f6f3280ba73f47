package ai

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations before they are saved.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding rejects providers that cannot embed, then pings the provider.
// Offline providers always pass the ping.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil {
		return nil
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), config.Provider) {
		return fmt.Errorf("%w: %q is not an embedding provider", domain.ErrInvalidInput, config.Provider)
	}
	if config.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", domain.ErrInvalidInput)
	}
	if config.Provider.RequiresAPIKey() && config.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, config.Provider)
	}
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM rejects providers that cannot generate answers, then pings the provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil {
		return nil
	}
	if !slices.Contains(domain.AllLLMProviders(), config.Provider) {
		return fmt.Errorf("%w: %q is not an answer provider", domain.ErrInvalidInput, config.Provider)
	}
	if config.Provider.RequiresAPIKey() && config.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", domain.ErrInvalidInput, config.Provider)
	}
	return ValidateLLMConfig(config)
}
