// Package cli implements the killwatch command line.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "killwatch",
	Short: "Live killmail ingestion and value-weighted retention",
	Long: "killwatch long-polls a RedisQ killmail feed, keeps fresh killmails in memory " +
		"for a lifetime proportional to their value, and serves them over HTTP.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
