// Package cli provides the riskpilot command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/riskpilot/internal/core/ports/driving"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services configured by SetServices.
var (
	pipelineService  driving.PipelineService
	retrievalService driving.RetrievalService
	indexAdmin       driving.IndexAdmin
	auditQuery       driving.AuditQuery
	settingsService  driving.SettingsService

	// policyTopics lists the topics with canned queries.
	policyTopics []string

	// defaultCorpusDir is rebuilt and watched when no directory is given.
	defaultCorpusDir string

	// rateLimitPerMinute bounds MCP ask calls.
	rateLimitPerMinute int

	// guardrailsOff disables guardrails for clients that do not ask for them.
	guardrailsOff bool
)

// Services holds the core services the commands drive.
type Services struct {
	Pipeline  driving.PipelineService
	Retrieval driving.RetrievalService
	Index     driving.IndexAdmin
	Audit     driving.AuditQuery
	Settings  driving.SettingsService
	Topics    []string
	CorpusDir string
	RateLimit int

	// GuardrailsOff mirrors guardrails.enabled = false.
	GuardrailsOff bool
}

// SetServices injects the core services. It must be called before Execute.
func SetServices(s Services) {
	pipelineService = s.Pipeline
	retrievalService = s.Retrieval
	indexAdmin = s.Index
	auditQuery = s.Audit
	settingsService = s.Settings
	policyTopics = s.Topics
	defaultCorpusDir = s.CorpusDir
	rateLimitPerMinute = s.RateLimit
	guardrailsOff = s.GuardrailsOff
}

var rootCmd = &cobra.Command{
	Use:   "riskpilot",
	Short: "Guarded question answering over policy documents",
	Long: `riskpilot answers questions about a corpus of policy documents.

Every question passes through input guardrails (PII, toxicity, banned topics,
prompt injection), retrieval over a local vector index, answer generation and
output validation. Each request is written to the audit trail.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
