package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/auth"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue an admin bearer token for order status updates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if secret == "" {
				path, _ := cmd.Flags().GetString("conf")
				bc, err := conf.Load(path)
				if err != nil {
					return err
				}
				secret = bc.Security.AdminJwtSecret
			}
			if secret == "" {
				return errors.New("admin JWT secret is not configured")
			}
			token, err := auth.NewToken(secret, args[0], auth.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("secret", "", "signing secret (defaults to security.admin_jwt_secret from the config)")
	cmd.Flags().Duration("ttl", 12*time.Hour, "token lifetime")
	return cmd
}
