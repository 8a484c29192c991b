package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinoosan/loanledger/internal/events"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and optionally seed the chart of accounts",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("seed-chart", false, "create missing accounts from CHART_FILE or the default chart")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	logger := newLogger(cfg, os.Stderr)
	b, err := openBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	seed, _ := cmd.Flags().GetBool("seed-chart")
	if !seed {
		fmt.Fprintln(cmd.OutOrStdout(), "migrations up to date")
		return nil
	}
	a := wire(cfg, b, &events.Fallback{Log: logger}, logger)
	created, err := seedChart(cmd.Context(), cfg, a.services.Accounts, logger)
	if err != nil {
		return err
	}
	for _, acc := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "created %-10s %s\n", acc.Type, acc.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "chart seeded: %d new accounts\n", len(created))
	return nil
}
