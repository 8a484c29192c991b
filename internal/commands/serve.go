package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/loanledger/internal/events"
	httpapi "github.com/tinoosan/loanledger/internal/httpapi/v1"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg, os.Stdout)
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()
	logger.Info("storage backend: " + b.name)

	pub := events.Connect(cfg.RabbitMQURL, cfg.EventsExchange, logger)
	defer pub.Close()

	a := wire(cfg, b, pub, logger)
	if cfg.SeedChart {
		if _, err := seedChart(ctx, cfg, a.services.Accounts, logger); err != nil {
			return err
		}
	}

	api := httpapi.New(a.services, httpapi.Options{
		Auth: httpapi.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("loanledger listening", "addr", srv.Addr, "currency", cfg.Currency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		logger.Error("server error", "err", err)
		return err
	}
}
