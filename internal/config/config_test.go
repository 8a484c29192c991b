package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range keys {
		unsetEnvWithCleanup(t, k)
	}
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "Retained Earnings", cfg.RetainedEarningsAccount)
	assert.Equal(t, "ledger_events", cfg.EventsExchange)
	assert.False(t, cfg.SeedChart)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Error(t, cfg.ValidateServe())
}

func TestLoad_EnvironmentOverridesDotEnv(t *testing.T) {
	for _, k := range keys {
		unsetEnvWithCleanup(t, k)
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_CURRENCY=ngn\nJWT_HS256_SECRET=from-file\nSEED_CHART=true\n"), 0o600))
	setEnvWithCleanup(t, "JWT_HS256_SECRET", "from-env")
	setEnvWithCleanup(t, "CORS_ALLOWED_ORIGINS", "https://backoffice.example, http://localhost:5173 ,")

	cfg, err := Load(dir)
	require.NoError(t, err)
	// godotenv writes into the process environment
	t.Cleanup(func() { _ = os.Unsetenv("LEDGER_CURRENCY"); _ = os.Unsetenv("SEED_CHART") })

	assert.Equal(t, "NGN", cfg.Currency)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.True(t, cfg.SeedChart)
	assert.Equal(t, []string{"https://backoffice.example", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.NoError(t, cfg.ValidateServe())
}

func setEnvWithCleanup(t *testing.T, key, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
		}
	})
}
