// Package openai provides an answer generator backed by OpenAI chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure Generator implements the interfaces.
var (
	_ driven.AnswerGenerator  = (*Generator)(nil)
	_ driven.PromptStoreAware = (*Generator)(nil)
)

// Default configuration values.
const (
	DefaultModel          = openai.GPT4oMini
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2000
	DefaultFallbackTokens = 500

	// contextLimit bounds the context embedded in the prompt, in characters.
	contextLimit = 2000
)

// Prompts used when no PromptStore is configured.
const (
	defaultSystemPrompt = "You are a risk management expert."

	defaultAnswerPrompt = `You are a Risk Management AI Assistant for a major bank.
Answer the following question based on the provided context from policy documents.
Be precise, professional, and cite sources when possible.

Context from policy documents:
%s

Question: %s

Answer:`

	defaultFallbackSystemPrompt = "You are a risk management expert. Provide general guidance."
)

// Config holds configuration for the OpenAI answer generator.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Temperature is the sampling temperature. Nil or negative selects
	// DefaultTemperature; zero is kept.
	Temperature *float32

	// MaxTokens bounds grounded answers (default: 2000).
	MaxTokens int
}

// Generator answers questions using OpenAI chat completions.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	promptStore driven.PromptStore
}

// NewGenerator creates a new OpenAI answer generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// GenerateWithContext answers query grounded on context.
// The retrieved context is cut to its first 2000 characters.
func (g *Generator) GenerateWithContext(ctx context.Context, query, retrieved string, _ []domain.Citation) (string, error) {
	prompt := fmt.Sprintf(g.loadPrompt(driven.PromptAnswerWithContext, defaultAnswerPrompt),
		truncateRunes(retrieved, contextLimit), query)

	return g.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: g.loadPrompt(driven.PromptSystem, defaultSystemPrompt)},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, g.maxTokens)
}

// GenerateFallback answers query without retrieved context.
func (g *Generator) GenerateFallback(ctx context.Context, query string) (string, error) {
	return g.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: g.loadPrompt(driven.PromptFallbackSystem, defaultFallbackSystemPrompt)},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}, DefaultFallbackTokens)
}

func (g *Generator) complete(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int) (string, error) {
	// The request field is omitempty, so an exact zero would fall back to the
	// server default.
	temperature := g.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", domain.ErrGenerationFailed)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationFailed)
	}
	return answer, nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (g *Generator) loadPrompt(name, fallback string) string {
	if g.promptStore == nil {
		return fallback
	}
	prompt, err := g.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (g *Generator) SetPromptStore(store driven.PromptStore) {
	g.promptStore = store
}

// ModelName returns the name of the chat model being used.
func (g *Generator) ModelName() string {
	return g.model
}

// Ping validates the API key by listing models.
func (g *Generator) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", wrapError(err))
	}
	return nil
}

func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
