// Package config loads service settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the service.
type Config struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`

	JWTSecret   string `mapstructure:"JWT_HS256_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	Currency                string `mapstructure:"LEDGER_CURRENCY"`
	CashAccount             string `mapstructure:"CASH_ACCOUNT"`
	PortfolioAccount        string `mapstructure:"PORTFOLIO_ACCOUNT"`
	InterestIncomeAccount   string `mapstructure:"INTEREST_INCOME_ACCOUNT"`
	RetainedEarningsAccount string `mapstructure:"RETAINED_EARNINGS_ACCOUNT"`
	ChartFile               string `mapstructure:"CHART_FILE"`
	SeedChart               bool   `mapstructure:"SEED_CHART"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	CORSAllowedOrigins []string `mapstructure:"-"`
}

var defaults = map[string]any{
	"HTTP_ADDR":                 ":8080",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
	"LEDGER_CURRENCY":           "USD",
	"CASH_ACCOUNT":              "Cash on Hand",
	"PORTFOLIO_ACCOUNT":         "Loan Portfolio",
	"INTEREST_INCOME_ACCOUNT":   "Interest Income",
	"RETAINED_EARNINGS_ACCOUNT": "Retained Earnings",
	"SEED_CHART":                false,
	"EVENTS_EXCHANGE":           "ledger_events",
}

var keys = []string{
	"HTTP_ADDR", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
	"JWT_HS256_SECRET", "JWT_ISSUER", "JWT_AUDIENCE",
	"LEDGER_CURRENCY", "CASH_ACCOUNT", "PORTFOLIO_ACCOUNT", "INTEREST_INCOME_ACCOUNT", "RETAINED_EARNINGS_ACCOUNT",
	"CHART_FILE", "SEED_CHART", "RABBITMQ_URL", "EVENTS_EXCHANGE", "CORS_ALLOWED_ORIGINS",
}

// Load reads dir/.env when present, then the environment. Values already in
// the environment win over the file.
func Load(dir string) (Config, error) {
	if dir != "" {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.RabbitMQURL = strings.TrimSpace(cfg.RabbitMQURL)
	for _, o := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}
	return cfg, nil
}

// ValidateServe checks the settings serve cannot run without.
func (c Config) ValidateServe() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_HS256_SECRET is required")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("LEDGER_CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}
	return nil
}
