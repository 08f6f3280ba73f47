// Command riskpilot answers questions about policy documents behind guardrails.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/riskpilot/internal/adapters/driven/ai"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/storage/processed"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/riskpilot/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/riskpilot/internal/adapters/driving/cli"
	"github.com/custodia-labs/riskpilot/internal/connectors/filesystem"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/core/services"
	"github.com/custodia-labs/riskpilot/internal/logger"
	"github.com/custodia-labs/riskpilot/internal/postprocessors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run wires the services and executes the CLI. Command errors are printed by
// cobra; only wiring errors are printed here.
func run(ctx context.Context) int {
	// A .env file is optional.
	_ = godotenv.Load()

	dataDir, err := file.DefaultDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		return 1
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read settings: %v\n", err)
		return 1
	}
	applyEnv(settings)
	resolvePaths(settings, dataDir)

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	aiServices := ai.Initialise(*settings, prompts)
	defer aiServices.Close()

	catalog, err := file.NewCatalogSource(settings.Guardrails.CatalogPath).LoadCatalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	guardrails, err := services.NewGuardrailService(catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	chunking, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: chunking settings: %v\n", err)
		return 1
	}

	handle := services.NewIndexHandle()
	indexSvc := services.NewIndexService(
		handle,
		filesystem.NewReader(),
		chunking,
		aiServices.EmbeddingService,
		flat.NewFactory(settings.Index.Path),
		settings.Chunking,
		settings.Embedding.Dimensions,
	)
	if settings.Index.ProcessedPath != "" {
		indexSvc.SetProcessedStore(processed.New(settings.Index.ProcessedPath))
	}
	// A missing index is normal before the first rebuild.
	if err := indexSvc.Load(ctx); err != nil {
		logger.Debug("index load: %v", err)
	}

	auditStore, err := openAuditStore(settings.Audit.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open audit store: %v\n", err)
		return 1
	}
	defer func() {
		if err := auditStore.Close(); err != nil {
			logger.Warn("close audit store: %v", err)
		}
	}()

	retrieval := services.NewRetrievalService(handle, aiServices.EmbeddingService, settings.Retrieval)

	cli.SetServices(cli.Services{
		Pipeline:      services.NewPipelineService(guardrails, retrieval, aiServices.Generator, auditStore, *settings),
		Retrieval:     retrieval,
		Index:         indexSvc,
		Audit:         services.NewAuditService(auditStore),
		Settings:      settingsSvc,
		Topics:        services.Topics(),
		CorpusDir:     settings.Corpus.Path,
		RateLimit:     settings.Server.RateLimitPerMinute,
		GuardrailsOff: !settings.Guardrails.Enabled,
	})

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

// applyEnv fills missing OpenAI keys from OPENAI_API_KEY.
func applyEnv(settings *domain.AppSettings) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = key
	}
	if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
		settings.LLM.APIKey = key
	}
}

// resolvePaths makes relative setting paths relative to dataDir.
func resolvePaths(settings *domain.AppSettings, dataDir string) {
	for _, p := range []*string{
		&settings.Index.Path,
		&settings.Index.ProcessedPath,
		&settings.Corpus.Path,
		&settings.Audit.Path,
		&settings.Guardrails.CatalogPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dataDir, *p)
		}
	}
}

// openAuditStore opens the SQLite audit trail, or an in-memory one when path is empty.
func openAuditStore(path string) (driven.AuditStore, error) {
	if path == "" {
		return memory.NewAuditStore(), nil
	}
	return sqlite.NewStore(path)
}
