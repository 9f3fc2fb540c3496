package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	var format string
	var autoMatch bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank statement CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.ingest.Import(cmd.Context(), filepath.Base(args[0]), format, f, autoMatch)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement format (generic, fio)")
	cmd.Flags().BoolVar(&autoMatch, "automatch", false, "run auto-match after import")
	return cmd
}
