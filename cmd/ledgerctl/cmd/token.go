package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/api"
)

var (
	subject string
	role    string
	ttl     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Sign a bearer token with JWT_SECRET for use against the HTTP API.
A --ttl of 0 issues a token that never expires.

Example:
  ledgerctl token --sub alice --role admin --ttl 8h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		tok, err := api.IssueToken(cfg.JWTSecret, subject, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&subject, "sub", "", "actor id placed in the sub claim")
	tokenCmd.Flags().StringVar(&role, "role", "user", `role claim ("admin" or "user")`)
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
}
