package cmd

import (
	"errors"
	"fmt"
	"time"

	"yampd/core/auth"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token",
	Long:  `Sign a bearer token with API_SECRET for clients of the HTTP API. A zero --ttl mints a token that never expires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.APISecret == "" {
			return errors.New("API_SECRET is not set, the API accepts requests without a token")
		}
		token, err := auth.IssueToken(cfg.APISecret, tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
