package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or answer generation.
type AIProvider string

// Available providers.
const (
	// AIProviderLocal is the offline feature-hashing embedder.
	AIProviderLocal AIProvider = "local"

	// AIProviderTemplate is the offline template answer generator.
	AIProviderTemplate AIProvider = "template"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderTemplate, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider needs no network.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderLocal || p == AIProviderTemplate
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (feature hashing, offline)"
	case AIProviderTemplate:
		return "Template (offline canned answers)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// IndexSettings holds vector index locations.
type IndexSettings struct {
	// Path is the directory holding the persisted index.
	Path string

	// ProcessedPath is the directory holding the processed corpus.
	// Empty disables processed corpus output.
	ProcessedPath string
}

// CorpusSettings holds the policy document source.
type CorpusSettings struct {
	// Path is the directory scanned on rebuild.
	Path string
}

// ChunkingSettings holds chunker configuration.
type ChunkingSettings struct {
	ChunkSize    int
	ChunkOverlap int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// Dimensions is the embedding vector size.
	Dimensions int

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderLocal && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return e.Dimensions > 0
}

// LLMSettings holds answer generator configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature is the sampling temperature in [0, 2]. Zero is greedy decoding.
	Temperature float64
}

// IsConfigured returns true if the answer generator is set up.
func (l LLMSettings) IsConfigured() bool {
	if l.Provider != AIProviderTemplate && l.Provider != AIProviderOpenAI {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds retrieval thresholds.
type RetrievalSettings struct {
	K                int
	ScoreThreshold   float64
	CitationMinScore float64
	MaxContextLength int
}

// GuardrailSettings holds guardrail configuration.
type GuardrailSettings struct {
	// Enabled is the default for requests that do not say otherwise.
	Enabled bool

	// CatalogPath is an optional YAML catalog overriding the built-in one.
	CatalogPath string
}

// PipelineSettings holds orchestrator configuration.
type PipelineSettings struct {
	// TimeoutSeconds is the per-request time budget.
	TimeoutSeconds int
}

// Timeout returns the per-request time budget.
func (p PipelineSettings) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// AuditSettings holds audit storage configuration.
type AuditSettings struct {
	// Path is the SQLite database file. Empty keeps records in memory.
	Path string
}

// ServerSettings holds MCP server configuration.
type ServerSettings struct {
	RateLimitPerMinute int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Index      IndexSettings
	Corpus     CorpusSettings
	Chunking   ChunkingSettings
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Retrieval  RetrievalSettings
	Guardrails GuardrailSettings
	Pipeline   PipelineSettings
	Audit      AuditSettings
	Server     ServerSettings
}

// Default settings values.
const (
	DefaultChunkSize          = 500
	DefaultChunkOverlap       = 50
	DefaultEmbeddingDim       = 384
	DefaultRateLimitPerMinute = 60
	DefaultLLMTemperature     = 0.7
	DefaultIndexDir           = "index"
	DefaultProcessedDir       = "processed"
	DefaultCorpusDir          = "documents"
	DefaultAuditFile          = "audit.db"
)

// DefaultAppSettings returns settings with sensible defaults.
// Paths are relative to the application data directory.
// The offline providers are used until a cloud provider is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Index: IndexSettings{
			Path:          DefaultIndexDir,
			ProcessedPath: DefaultProcessedDir,
		},
		Corpus: CorpusSettings{
			Path: DefaultCorpusDir,
		},
		Chunking: ChunkingSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderLocal,
			Model:      DefaultEmbeddingModels()[AIProviderLocal],
			Dimensions: DefaultEmbeddingDim,
		},
		LLM: LLMSettings{
			Provider:    AIProviderTemplate,
			Model:       DefaultLLMModels()[AIProviderTemplate],
			Temperature: DefaultLLMTemperature,
		},
		Retrieval: RetrievalSettings{
			K:                DefaultTopK,
			ScoreThreshold:   DefaultScoreThreshold,
			CitationMinScore: DefaultCitationMinScore,
			MaxContextLength: DefaultMaxContextLength,
		},
		Guardrails: GuardrailSettings{
			Enabled: true,
		},
		Pipeline: PipelineSettings{
			TimeoutSeconds: int(DefaultRequestTimeout / time.Second),
		},
		Audit: AuditSettings{
			Path: DefaultAuditFile,
		},
		Server: ServerSettings{
			RateLimitPerMinute: DefaultRateLimitPerMinute,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderTemplate,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing-unigram-bigram",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderTemplate: "mock-llm",
		AIProviderOpenAI:   "gpt-4o-mini",
	}
}
