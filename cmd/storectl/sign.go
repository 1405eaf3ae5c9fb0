package main

import (
	"errors"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/spf13/cobra"
)

// signCmd computes the checkout callback signature, for replaying a
// customer's payment against a local server.
func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute the payment callback signature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, _ := cmd.Flags().GetString("order-id")
			paymentID, _ := cmd.Flags().GetString("payment-id")
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				path, _ := cmd.Flags().GetString("conf")
				bc, err := conf.Load(path)
				if err != nil {
					return err
				}
				secret = bc.Gateway.KeySecret
			}
			if secret == "" {
				return errors.New("gateway key secret is not configured")
			}
			fmt.Fprintln(cmd.OutOrStdout(), biz.Sign(biz.PaymentSignatureMessage(orderID, paymentID), secret))
			return nil
		},
	}
	cmd.Flags().String("order-id", "", "gateway order id")
	cmd.Flags().String("payment-id", "", "gateway payment id")
	_ = cmd.MarkFlagRequired("order-id")
	_ = cmd.MarkFlagRequired("payment-id")
	cmd.Flags().String("secret", "", "gateway key secret (defaults to gateway.key_secret from the config)")
	return cmd
}
