package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportPaymentCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-payment <payment-id>",
		Short: "Write the remittance workbook of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paymentID := args[0]
			if out == "" {
				out = "payment-" + paymentID + ".xlsx"
			}

			c, err := a.start(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}

			if err := c.Services().Payments.Export(cmd.Context(), paymentID, f); err != nil {
				_ = f.Close()
				_ = os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default payment-<id>.xlsx)")
	return cmd
}
