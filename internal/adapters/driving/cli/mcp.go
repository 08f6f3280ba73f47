package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/riskpilot/internal/adapters/driving/mcp"
	"github.com/custodia-labs/riskpilot/internal/telemetry"
)

var (
	mcpHTTPAddr    string
	mcpMetricsAddr string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  ask              - answer a policy question through the guardrails
  search_policies  - find policy passages by query or topic
  index_stats      - report the vector index status

By default the server communicates over stdio. Use --http to serve the
streamable HTTP transport instead, and --metrics-addr to expose Prometheus
metrics at /metrics.

Examples:
  # Stdio mode (default, for desktop assistants)
  riskpilot mcp

  # HTTP mode with metrics
  riskpilot mcp --http :8080 --metrics-addr :9090

Desktop assistant configuration:
  {
    "mcpServers": {
      "riskpilot": {
        "command": "/path/to/riskpilot",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve HTTP on this address instead of stdio")
	mcpCmd.Flags().StringVar(&mcpMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	ports := &mcp.Ports{
		Pipeline:      pipelineService,
		Retrieval:     retrievalService,
		Index:         indexAdmin,
		Audit:         auditQuery,
		Topics:        policyTopics,
		GuardrailsOff: guardrailsOff,
	}

	server, err := mcp.NewServer(ports, rateLimitPerMinute, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	// The metrics server stops when the MCP server does.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if mcpMetricsAddr != "" {
		g.Go(func() error {
			return mcp.ServeMetrics(ctx, mcpMetricsAddr, telemetry.Handler())
		})
	}
	g.Go(func() error {
		defer cancel()
		if mcpHTTPAddr != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", mcpHTTPAddr)
			return server.RunHTTP(ctx, mcpHTTPAddr)
		}
		return server.Run(ctx)
	})
	return g.Wait()
}
