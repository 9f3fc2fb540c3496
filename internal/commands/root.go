package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bank-payments-backend/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "bankpay",
		Short:   "Bank payment reconciliation backend",
		Version: fmt.Sprintf("%s (commit: %s)", buildinfo.Version, buildinfo.Commit),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("BANKPAY_CONFIG", configPath)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./bankpay.yaml)")

	rootCmd.AddCommand(
		newServeCommand(),
		newAutoMatchCommand(),
		newImportCommand(),
		newMigrateCommand(),
	)

	return rootCmd
}
