package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/tinoosan/loanledger/internal/httpapi/v1"
	"github.com/tinoosan/loanledger/internal/ledger"
)

var tokenRoles = []ledger.Role{
	ledger.RoleAdmin,
	ledger.RoleFinanceInitiator,
	ledger.RoleApprover,
	ledger.RoleLoanOfficer,
}

// newTokenCommand mints a bearer token signed with JWT_HS256_SECRET, for
// local development against the API.
func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_HS256_SECRET is required")
			}
			sub, _ := cmd.Flags().GetString("sub")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if sub == "" {
				return errors.New("--sub is required")
			}
			if !ledger.Role(role).In(tokenRoles...) {
				return fmt.Errorf("unknown role %q", role)
			}
			auth := httpapi.NewAuthenticator(httpapi.AuthConfig{
				Secret:   cfg.JWTSecret,
				Issuer:   cfg.JWTIssuer,
				Audience: cfg.JWTAudience,
			})
			tok, err := auth.Sign(ledger.Identity{Subject: sub, Name: name, Role: ledger.Role(role)}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().String("sub", "", "subject (user id) of the token")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("role", string(ledger.RoleAdmin), "admin, finance_initiator, approver or loan_officer")
	cmd.Flags().Duration("ttl", 8*time.Hour, "token lifetime")
	return cmd
}
