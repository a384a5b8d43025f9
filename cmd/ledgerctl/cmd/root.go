// Package cmd provides the ledgerctl subcommands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/config"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/events"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/store/sqlite"
)

var (
	envFile string
	dbPath  string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the ledger database from the command line",
	Long: `ledgerctl runs maintenance tasks against the ledger database
without going through the HTTP API.

It supports:
- Reconciling stored balances against transaction history
- Printing per-account statements for a month, quarter or year
- Issuing API tokens
- Loading demo scenarios into a fresh database

Example:
  ledgerctl reconcile --repair
  ledgerctl statement --period quarter
  ledgerctl token --sub alice --role admin --ttl 24h
  ledgerctl seed small-business --db ./data/demo.db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}

		level := cfg.SlogLevel()
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statementCmd)
}

// openService opens the configured database and builds a service with
// events logged locally. The caller closes the store.
func openService() (*sqlite.Store, *lifecycle.Service, error) {
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DatabasePath, err)
	}
	slog.Debug("opened database", "path", cfg.DatabasePath)

	svc := lifecycle.NewService(store, lifecycle.Options{
		Events: &events.Fallback{Logger: slog.Default()},
		Logger: slog.Default(),
		Policy: cfg.ExtractionPolicy(),
	})
	return store, svc, nil
}
