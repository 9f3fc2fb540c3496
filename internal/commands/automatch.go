package commands

import (
	"encoding/json"
	"fmt"

	"bank-payments-backend/internal/models"

	"github.com/spf13/cobra"
)

func newAutoMatchCommand() *cobra.Command {
	var paymentType string

	cmd := &cobra.Command{
		Use:   "automatch",
		Short: "Match unmatched bank payments to users by variable symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var pt models.PaymentType
			if paymentType != "" {
				parsed, err := models.ParsePaymentType(paymentType)
				if err != nil {
					return err
				}
				pt = parsed
			}

			a, err := newApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.recon.AutoMatch(cmd.Context(), pt)
			if err != nil {
				return fmt.Errorf("auto-match: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&paymentType, "type", "", "payment type to assign (donation, shop, subscription); default from config")
	return cmd
}
