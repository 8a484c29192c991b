// Package commands builds the loanledger command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/tinoosan/loanledger/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "loanledger",
		Short:   "Accounting back office for a microfinance institution",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("env-dir", ".", "directory holding an optional .env file")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newTokenCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
