package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "./data/ledger.db", cfg.DatabasePath)
	assert.Equal(t, "ledger.events", cfg.EventsExchange)
	assert.Equal(t, "0 3 * * *", cfg.ReconcileSchedule)
	assert.False(t, cfg.ReconcileRepair)
	assert.Equal(t, 15*time.Second, cfg.ExtractorTimeout())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())

	policy := cfg.ExtractionPolicy()
	assert.InDelta(t, 0.7, policy.MinConfidence, 1e-9)
	assert.Equal(t, "20", policy.AmountTolerancePercent.String())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://muhasebe.example.com")
	t.Setenv("EXTRACTOR_TIMEOUT_SECONDS", "3")
	t.Setenv("RECONCILE_REPAIR", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, []string{"http://localhost:3000", "https://muhasebe.example.com"}, cfg.AllowedOrigins())
	assert.Equal(t, 3*time.Second, cfg.ExtractorTimeout())
	assert.True(t, cfg.ReconcileRepair)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_DotEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// t.Setenv registers a restore; godotenv never overrides a set variable
	t.Setenv("DATABASE_PATH", "")
	os.Unsetenv("DATABASE_PATH")
	t.Setenv("SERVER_PORT", "7000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_PATH=/tmp/from-dotenv.db\nSERVER_PORT=1111\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.DatabasePath)
	assert.Equal(t, "7000", cfg.ServerPort, "real environment wins over .env")
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWTSecret: "short", ExtractorMinConfidence: 1.5, ReconcileSchedule: "every day"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "EXTRACTOR_MIN_CONFIDENCE")
	assert.Contains(t, err.Error(), "RECONCILE_SCHEDULE")
}
