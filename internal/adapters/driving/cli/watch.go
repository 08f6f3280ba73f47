package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/riskpilot/internal/connectors/filesystem"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rebuild the index whenever the policy documents change",
	Long: `Watches the corpus directory and rebuilds the index after each burst of
changes to supported documents. Requests keep using the previous index until
the rebuild is published. Stop with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before rebuilding")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexAdmin == nil {
		return errors.New("index service not configured")
	}

	dir := corpusDirArg(args)
	if dir == "" {
		return errors.New("no corpus directory given or configured")
	}

	watcher := filesystem.NewWatcher(dir, watchDebounce, func(ctx context.Context, paths []string) {
		cmd.Printf("%d file(s) changed, rebuilding...\n", len(paths))
		report, err := indexAdmin.Rebuild(ctx, dir)
		if err != nil {
			logger.Warn("rebuild after change failed: %v", err)
			cmd.Printf("Rebuild failed: %v\n", err)
			return
		}
		cmd.Printf("Indexed %d chunks from %d documents.\n", report.Chunks, report.Documents)
	})

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)...\n", dir)
	return watcher.Run(cmd.Context())
}
