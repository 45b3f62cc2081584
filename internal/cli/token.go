package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-analytics-api/internal/dto"
	"github.com/noah-isme/exam-analytics-api/internal/service"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for the protected ingestion endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			tokens := service.NewTokenService(service.TokenConfig{
				Secret: cfg.JWT.Secret,
				Issuer: cfg.JWT.Issuer,
				Expiry: cfg.JWT.Expiration,
			}, nil, logr)
			signed, expiresAt, err := tokens.Issue(dto.IssueTokenRequest{Subject: subject, Role: role, TTL: ttl})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires_at=%s\n", signed, expiresAt.Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject, usually the operator name")
	cmd.Flags().StringVar(&role, "role", "ADMIN", "ADMIN or ANALYST")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
