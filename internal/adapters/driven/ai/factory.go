// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	localembed "github.com/custodia-labs/riskpilot/internal/adapters/driven/embedding/local"
	openaiembed "github.com/custodia-labs/riskpilot/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/riskpilot/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/llm/template"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// pinger is implemented by generators that can check connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Generator        driven.AnswerGenerator
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if an offline provider replaced a configured one.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
}

// Initialise creates the configured services. A cloud provider that cannot be
// created or reached is replaced by its offline counterpart and a warning is
// recorded. The embedding fallback keeps the configured dimensions so an
// existing index stays searchable by shape, though scores will be meaningless
// until the index is rebuilt with the same provider.
func Initialise(settings domain.AppSettings, prompts driven.PromptStore) *InitResult {
	result := &InitResult{}

	embedding, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil || embedding == nil {
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
		result.FellBack = settings.Embedding.Provider != domain.AIProviderLocal
		embedding = localembed.NewEmbeddingService(settings.Embedding.Dimensions)
	}
	result.EmbeddingService = embedding

	generator, err := CreateAndValidateAnswerGenerator(&settings.LLM, prompts)
	if err != nil || generator == nil {
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
		result.FellBack = result.FellBack || settings.LLM.Provider != domain.AIProviderTemplate
		generator = template.NewGenerator()
	}
	result.Generator = generator

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'riskpilot settings set embedding.provider local' to use the offline embedder",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateAnswerGenerator creates an answer generator and validates connectivity.
func CreateAndValidateAnswerGenerator(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	gen, err := CreateAnswerGenerator(settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'riskpilot settings set llm.provider template' to use offline answers",
			domain.ErrLLMUnavailable, err)
	}

	if p, ok := gen.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
		}
	}

	return gen, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an answer generator configuration by creating it and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	gen, err := CreateAnswerGenerator(settings, nil)
	if err != nil {
		return err
	}
	p, ok := gen.(pinger)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return localembed.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateAnswerGenerator creates the appropriate answer generator based on settings.
// Generators that accept custom prompts are given prompts when it is non-nil.
func CreateAnswerGenerator(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.AnswerGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var gen driven.AnswerGenerator
	switch settings.Provider {
	case domain.AIProviderTemplate:
		gen = template.NewGenerator()

	case domain.AIProviderOpenAI:
		temperature := float32(settings.Temperature)
		g, err := openaillm.NewGenerator(openaillm.Config{
			APIKey:      settings.APIKey,
			Model:       settings.Model,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, err
		}
		gen = g

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}

	if aware, ok := gen.(driven.PromptStoreAware); ok && prompts != nil {
		aware.SetPromptStore(prompts)
	}
	return gen, nil
}
