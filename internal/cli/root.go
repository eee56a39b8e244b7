package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brain",
	Short: "Personal memory engine for AI coding agents",
	Long:  "Brain stores, ranks, and recalls memories for AI agents. Single Go binary backed by SQLite.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(admitCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(sinksCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(mcpCmd)
}
