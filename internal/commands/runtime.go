package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/chart"
	"github.com/tinoosan/loanledger/internal/config"
	"github.com/tinoosan/loanledger/internal/events"
	httpapi "github.com/tinoosan/loanledger/internal/httpapi/v1"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/service/account"
	"github.com/tinoosan/loanledger/internal/service/closing"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/service/loan"
	"github.com/tinoosan/loanledger/internal/service/report"
	"github.com/tinoosan/loanledger/internal/storage"
	"github.com/tinoosan/loanledger/internal/storage/memory"
	pgstore "github.com/tinoosan/loanledger/internal/storage/postgres"
)

// systemIdentity is the actor recorded for work started from the command line.
var systemIdentity = ledger.Identity{Subject: "system", Name: "loanledger", Role: ledger.RoleAdmin}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dir, _ := cmd.Flags().GetString("env-dir")
	return config.Load(dir)
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger: JSON by default, text with LOG_FORMAT=text.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if strings.EqualFold(strings.TrimSpace(cfg.LogFormat), "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// backend is an opened store and how to release it.
type backend struct {
	store storage.Store
	ready storage.ReadyChecker
	name  string
	close func()
}

// openBackend uses postgres when DATABASE_URL is set and the memory store
// otherwise. Postgres migrations run before the store is handed out.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	if cfg.DatabaseURL == "" {
		m := memory.New()
		return backend{store: m, ready: m, name: "memory", close: func() {}}, nil
	}
	pg, err := pgstore.Open(ctx, cfg.DatabaseURL, cfg.Currency)
	if err != nil {
		return backend{}, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := pg.Migrate(ctx)
	if err != nil {
		pg.Close()
		return backend{}, fmt.Errorf("migrate: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "versions", applied)
	}
	return backend{store: pg, ready: pg, name: "postgres", close: pg.Close}, nil
}

// app is the wired service graph.
type app struct {
	services httpapi.Services
	events   events.Publisher
}

func wire(cfg config.Config, b backend, pub events.Publisher, logger *slog.Logger) app {
	rec := audit.New(b.store, logger)
	j := journal.New(b.store, cfg.Currency, logger, journal.WithEvents(pub))
	loanAccounts := loan.Accounts{
		Cash:           cfg.CashAccount,
		Portfolio:      cfg.PortfolioAccount,
		InterestIncome: cfg.InterestIncomeAccount,
	}
	return app{
		services: httpapi.Services{
			Accounts: account.New(b.store, j, rec, logger),
			Journal:  j,
			Loans:    loan.New(b.store, j, loanAccounts, rec, pub, logger),
			Closing:  closing.New(b.store, j, cfg.RetainedEarningsAccount, rec, pub, logger),
			Reports:  report.New(b.store, cfg.Currency),
			Audit:    rec,
			Ready:    b.ready,
		},
		events: pub,
	}
}

// seedChart creates the accounts of the configured chart that do not exist yet.
func seedChart(ctx context.Context, cfg config.Config, accounts account.Service, logger *slog.Logger) ([]ledger.Account, error) {
	c, err := chart.Load(cfg.ChartFile)
	if err != nil {
		return nil, err
	}
	created, err := accounts.EnsureChart(ctx, systemIdentity, c)
	if err != nil {
		return nil, err
	}
	logger.Info("chart of accounts seeded", "created", len(created), "accounts", len(c.Accounts))
	return created, nil
}
