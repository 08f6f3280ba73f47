package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and configured providers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("riskpilot version %s\n", version)

		if settingsService == nil {
			return
		}
		settings, err := settingsService.Get()
		if err != nil {
			return
		}
		cmd.Printf("embedding: %s (%s, %d dims)\n",
			settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.Dimensions)
		cmd.Printf("llm:       %s (%s)\n", settings.LLM.Provider, settings.LLM.Model)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
