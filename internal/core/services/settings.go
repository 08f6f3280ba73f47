package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyIndexPath          = "index.path"
	keyProcessedPath      = "index.processed_path"
	keyCorpusPath         = "corpus.path"
	keyChunkSize          = "chunking.chunk_size"
	keyChunkOverlap       = "chunking.chunk_overlap"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedAPIKey        = "embedding.api_key"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMTemperature     = "llm.temperature"
	keyRetrievalK         = "retrieval.k"
	keyScoreThreshold     = "retrieval.score_threshold"
	keyCitationMinScore   = "retrieval.citation_min_score"
	keyMaxContextLength   = "retrieval.max_context_length"
	keyGuardrailsEnabled  = "guardrails.enabled"
	keyGuardrailsCatalog  = "guardrails.catalog_path"
	keyPipelineTimeout    = "pipeline.timeout_seconds"
	keyAuditPath          = "audit.path"
	keyRateLimitPerMinute = "server.rate_limit_per_minute"
)

// field binds a config key to one typed field of AppSettings.
// Exactly one pointer is set.
type field struct {
	key      string
	str      *string
	num      *int
	real     *float64
	flag     *bool
	provider *domain.AIProvider
	secret   bool
}

// fields returns the config-backed fields of s, in display order.
func fields(s *domain.AppSettings) []field {
	return []field{
		{key: keyIndexPath, str: &s.Index.Path},
		{key: keyProcessedPath, str: &s.Index.ProcessedPath},
		{key: keyCorpusPath, str: &s.Corpus.Path},
		{key: keyChunkSize, num: &s.Chunking.ChunkSize},
		{key: keyChunkOverlap, num: &s.Chunking.ChunkOverlap},
		{key: keyEmbedProvider, provider: &s.Embedding.Provider},
		{key: keyEmbedModel, str: &s.Embedding.Model},
		{key: keyEmbedDimensions, num: &s.Embedding.Dimensions},
		{key: keyEmbedAPIKey, str: &s.Embedding.APIKey, secret: true},
		{key: keyLLMProvider, provider: &s.LLM.Provider},
		{key: keyLLMModel, str: &s.LLM.Model},
		{key: keyLLMAPIKey, str: &s.LLM.APIKey, secret: true},
		{key: keyLLMTemperature, real: &s.LLM.Temperature},
		{key: keyRetrievalK, num: &s.Retrieval.K},
		{key: keyScoreThreshold, real: &s.Retrieval.ScoreThreshold},
		{key: keyCitationMinScore, real: &s.Retrieval.CitationMinScore},
		{key: keyMaxContextLength, num: &s.Retrieval.MaxContextLength},
		{key: keyGuardrailsEnabled, flag: &s.Guardrails.Enabled},
		{key: keyGuardrailsCatalog, str: &s.Guardrails.CatalogPath},
		{key: keyPipelineTimeout, num: &s.Pipeline.TimeoutSeconds},
		{key: keyAuditPath, str: &s.Audit.Path},
		{key: keyRateLimitPerMinute, num: &s.Server.RateLimitPerMinute},
	}
}

// IsSecretKey reports whether key holds a credential that should be masked.
func IsSecretKey(key string) bool {
	return key == keyEmbedAPIKey || key == keyLLMAPIKey
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Missing or mistyped values
// keep their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for _, f := range fields(&settings) {
		val, ok := s.configStore.Get(f.key)
		if !ok {
			continue
		}
		switch {
		case f.str != nil:
			if str, ok := val.(string); ok && str != "" {
				*f.str = str
			}
		case f.num != nil:
			if isNumber(val) {
				*f.num = s.configStore.GetInt(f.key)
			}
		case f.real != nil:
			if isNumber(val) {
				*f.real = s.configStore.GetFloat(f.key)
			}
		case f.flag != nil:
			if b, ok := val.(bool); ok {
				*f.flag = b
			}
		case f.provider != nil:
			if p := domain.AIProvider(s.configStore.GetString(f.key)); p.IsValid() {
				*f.provider = p
			}
		}
	}

	return &settings, nil
}

// Save persists application settings. Empty API keys are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	for _, f := range fields(settings) {
		var val any
		switch {
		case f.str != nil:
			if f.secret && *f.str == "" {
				continue
			}
			val = *f.str
		case f.num != nil:
			val = *f.num
		case f.real != nil:
			val = *f.real
		case f.flag != nil:
			val = *f.flag
		case f.provider != nil:
			val = f.provider.String()
		}
		if err := s.configStore.Set(f.key, val); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}
	return nil
}

// Set parses value for key, validates the resulting settings and stores it.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var target *field
	for _, f := range fields(settings) {
		if f.key == key {
			target = &f
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	var stored any
	switch {
	case target.str != nil:
		*target.str = value
		stored = value
	case target.num != nil:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		*target.num = n
		stored = n
	case target.real != nil:
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		*target.real = x
		stored = x
	case target.flag != nil:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		*target.flag = b
		stored = b
	case target.provider != nil:
		*target.provider = domain.AIProvider(strings.ToLower(value))
		stored = target.provider.String()
	}

	if err := validateSettings(settings); err != nil {
		return err
	}
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every supported key.
func (s *SettingsService) Keys() []string {
	var settings domain.AppSettings
	fs := fields(&settings)
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.key
	}
	return keys
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the answer generator provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not generate answers", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return validateSettings(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// validateSettings checks ranges and provider combinations.
func validateSettings(s *domain.AppSettings) error {
	switch {
	case s.Chunking.ChunkSize <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyChunkSize)
	case s.Chunking.ChunkOverlap < 0 || s.Chunking.ChunkOverlap >= s.Chunking.ChunkSize:
		return fmt.Errorf("%w: %s must be in [0, %s)", domain.ErrInvalidInput, keyChunkOverlap, keyChunkSize)
	case s.Embedding.Dimensions <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyEmbedDimensions)
	case s.Retrieval.K <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyRetrievalK)
	case s.Retrieval.ScoreThreshold < -1 || s.Retrieval.ScoreThreshold > 1:
		return fmt.Errorf("%w: %s must be in [-1, 1]", domain.ErrInvalidInput, keyScoreThreshold)
	case s.Retrieval.CitationMinScore < -1 || s.Retrieval.CitationMinScore > 1:
		return fmt.Errorf("%w: %s must be in [-1, 1]", domain.ErrInvalidInput, keyCitationMinScore)
	case s.LLM.Temperature < 0 || s.LLM.Temperature > 2:
		return fmt.Errorf("%w: %s must be in [0, 2]", domain.ErrInvalidInput, keyLLMTemperature)
	case s.Retrieval.MaxContextLength <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyMaxContextLength)
	case s.Pipeline.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyPipelineTimeout)
	case s.Server.RateLimitPerMinute <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyRateLimitPerMinute)
	case !slices.Contains(domain.AllEmbeddingProviders(), s.Embedding.Provider):
		return fmt.Errorf("%w: %s %q does not support embeddings", domain.ErrInvalidInput, keyEmbedProvider, s.Embedding.Provider)
	case !slices.Contains(domain.AllLLMProviders(), s.LLM.Provider):
		return fmt.Errorf("%w: %s %q does not generate answers", domain.ErrInvalidInput, keyLLMProvider, s.LLM.Provider)
	}
	return nil
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64, float32:
		return true
	default:
		return false
	}
}
