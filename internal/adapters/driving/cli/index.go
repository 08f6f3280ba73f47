package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

var (
	indexStatsJSON     bool
	indexFromProcessed bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the policy vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild [dir]",
	Short: "Rebuild the index from the policy documents",
	Long: `Reads, chunks and embeds every supported document (.md, .markdown, .txt)
directly under dir, then saves and publishes a new index. Without dir the
configured corpus directory is used.

With --from-processed the stored chunks and embeddings of the last rebuild are
re-indexed without reading or embedding documents again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexRebuild,
}

func init() {
	indexStatsCmd.Flags().BoolVar(&indexStatsJSON, "json", false, "output statistics as JSON")
	indexRebuildCmd.Flags().BoolVar(&indexFromProcessed, "from-processed", false, "rebuild from the stored processed corpus")
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexAdmin == nil {
		return errors.New("index service not configured")
	}

	stats := indexAdmin.Stats()
	if indexStatsJSON {
		return writeJSON(cmd, stats)
	}

	printIndexStats(cmd, stats)
	return nil
}

func printIndexStats(cmd *cobra.Command, stats domain.IndexStats) {
	if !stats.Ready() {
		cmd.Println("Index not initialized. Run 'riskpilot index rebuild' to build it.")
		return
	}

	cmd.Println("Index")
	cmd.Println("=====")
	cmd.Printf("  Status:     %s\n", stats.Status)
	cmd.Printf("  Documents:  %d\n", stats.TotalDocuments)
	cmd.Printf("  Chunks:     %d\n", stats.TotalChunks)
	cmd.Printf("  Vectors:    %d\n", stats.TotalVectors)
	cmd.Printf("  Dimensions: %d\n", stats.EmbeddingDim)
	cmd.Printf("  Size:       %d bytes\n", stats.IndexSizeBytes)
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	if indexAdmin == nil {
		return errors.New("index service not configured")
	}

	var (
		report *domain.RebuildReport
		err    error
	)
	if indexFromProcessed {
		if len(args) > 0 {
			return errors.New("a directory cannot be combined with --from-processed")
		}
		cmd.Println("Rebuilding index from the processed corpus...")
		report, err = indexAdmin.RebuildFromProcessed(cmd.Context())
	} else {
		dir := corpusDirArg(args)
		if dir == "" {
			return errors.New("no corpus directory given or configured")
		}
		cmd.Printf("Rebuilding index from %s...\n", dir)
		report, err = indexAdmin.Rebuild(cmd.Context(), dir)
	}
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks from %d documents.\n", report.Chunks, report.Documents)
	for _, path := range report.SkippedDocuments {
		cmd.Printf("  skipped: %s\n", path)
	}
	return nil
}

// corpusDirArg returns the directory argument or the configured corpus directory.
func corpusDirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultCorpusDir
}
