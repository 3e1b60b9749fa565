package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/makeasinger/studio/internal/auth"
)

func newTokenCmd(load loader) *cobra.Command {
	var userID, email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a legacy API token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			ttl := time.Duration(cfg.JWT.Expiration) * time.Hour
			token, err := auth.IssueLegacyToken(userID, email, cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev-user", "User id claim")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	return cmd
}
