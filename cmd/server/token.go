package main

import (
	"fmt"
	"time"

	"lipa/config"
	"lipa/internal/auth"

	"github.com/spf13/cobra"
)

func tokenCmd(configPath *string) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator access token for the payment-intent API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != auth.RoleOperator && role != auth.RoleViewer {
				return fmt.Errorf("unknown role %q", role)
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			token, err := auth.GenerateAccessToken(&cfg.JWT, subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, e.g. an operator email")
	cmd.Flags().StringVar(&role, "role", auth.RoleOperator, "operator or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to jwt.access_expiry)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
