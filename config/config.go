/*
Package config loads service settings from the environment.

PURPOSE:
  One Config struct for the HTTP server, the scheduler and ledgerctl.
  Values come from environment variables, optionally preloaded from a
  .env file, with defaults for everything except the JWT secret.

SEE ALSO:
  - cmd/server/main.go: Validates and wires the config
  - cmd/ledgerctl: Reads DATABASE_PATH and LOG_LEVEL only
*/
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// Config holds all configuration for the ledger service.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	DatabasePath       string `mapstructure:"DATABASE_PATH"`
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	ExtractorURL                  string  `mapstructure:"EXTRACTOR_URL"`
	ExtractorAPIKey               string  `mapstructure:"EXTRACTOR_API_KEY"`
	ExtractorTimeoutSeconds       int     `mapstructure:"EXTRACTOR_TIMEOUT_SECONDS"`
	ExtractorMinConfidence        float64 `mapstructure:"EXTRACTOR_MIN_CONFIDENCE"`
	ReceiptAmountTolerancePercent float64 `mapstructure:"RECEIPT_AMOUNT_TOLERANCE_PERCENT"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileRepair   bool   `mapstructure:"RECONCILE_REPAIR"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// EnableDemoScenarios mounts /api/scenarios, which wipes the database.
	EnableDemoScenarios bool `mapstructure:"ENABLE_DEMO_SCENARIOS"`
}

var keys = []string{
	"SERVER_PORT", "DATABASE_PATH", "JWT_SECRET", "CORS_ALLOWED_ORIGINS",
	"EXTRACTOR_URL", "EXTRACTOR_API_KEY", "EXTRACTOR_TIMEOUT_SECONDS",
	"EXTRACTOR_MIN_CONFIDENCE", "RECEIPT_AMOUNT_TOLERANCE_PERCENT",
	"RABBITMQ_URL", "EVENTS_EXCHANGE", "RECONCILE_SCHEDULE", "RECONCILE_REPAIR",
	"LOG_LEVEL", "ENABLE_DEMO_SCENARIOS",
}

// Load reads configuration from environment variables. When envFile is
// non-empty and exists it is loaded first; variables already set in the
// environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "./data/ledger.db")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("EXTRACTOR_TIMEOUT_SECONDS", 15)
	viper.SetDefault("EXTRACTOR_MIN_CONFIDENCE", 0.7)
	viper.SetDefault("RECEIPT_AMOUNT_TOLERANCE_PERCENT", 20)
	viper.SetDefault("EVENTS_EXCHANGE", "ledger.events")
	viper.SetDefault("RECONCILE_SCHEDULE", "0 3 * * *") // At 03:00 every day.
	viper.SetDefault("RECONCILE_REPAIR", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ENABLE_DEMO_SCENARIOS", false)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.ExtractorMinConfidence < 0 || c.ExtractorMinConfidence > 1 {
		errs = append(errs, errors.New("EXTRACTOR_MIN_CONFIDENCE must be between 0 and 1"))
	}
	if c.ReceiptAmountTolerancePercent < 0 {
		errs = append(errs, errors.New("RECEIPT_AMOUNT_TOLERANCE_PERCENT must not be negative"))
	}
	if c.ReconcileSchedule != "" {
		if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
			errs = append(errs, fmt.Errorf("RECONCILE_SCHEDULE: %w", err))
		}
	}
	return errors.Join(errs...)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ExtractorTimeout is EXTRACTOR_TIMEOUT_SECONDS as a duration.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.ExtractorTimeoutSeconds) * time.Second
}

// ExtractionPolicy builds the receipt trust rules for the lifecycle service.
func (c *Config) ExtractionPolicy() lifecycle.ExtractionPolicy {
	return lifecycle.ExtractionPolicy{
		MinConfidence:          c.ExtractorMinConfidence,
		AmountTolerancePercent: decimal.NewFromFloat(c.ReceiptAmountTolerancePercent),
		Timeout:                c.ExtractorTimeout(),
	}
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
