/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger HTTP server.
  Handles configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, then environment)
  2. Initialize SQLite store
  3. Connect the event publisher (RabbitMQ, or log-only fallback)
  4. Build the receipt extractor and the lifecycle service
  5. Configure HTTP router and start the reconciliation scheduler
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Wait for a running reconciliation to finish
  4. Close the event publisher and the database

ENVIRONMENT:
  See config/config.go for the full list. JWT_SECRET is required.

EXAMPLES:
  # Run with file database
  DATABASE_PATH=./data/ledger.db JWT_SECRET=... ./server

  # Run with in-memory database and demo scenarios
  DATABASE_PATH=":memory:" ENABLE_DEMO_SCENARIOS=true JWT_SECRET=... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Reconciliation scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/api"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/config"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/events"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/extract"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher := events.Connect(cfg.RabbitMQURL, cfg.EventsExchange, logger)
	defer publisher.Close()

	var extractor extract.Extractor = extract.Disabled{}
	if cfg.ExtractorURL != "" {
		extractor = extract.NewClient(cfg.ExtractorURL, cfg.ExtractorAPIKey, cfg.ExtractorTimeout())
	} else {
		logger.Info("EXTRACTOR_URL not set, receipt extraction disabled")
	}

	svc := lifecycle.NewService(store, lifecycle.Options{
		Extractor: extractor,
		Events:    publisher,
		Logger:    logger,
		Policy:    cfg.ExtractionPolicy(),
	})

	handler := api.NewHandler(svc, logger)
	if cfg.EnableDemoScenarios {
		logger.Warn("demo scenarios enabled, POST /api/scenarios/load wipes the database")
		handler.Resetter = store
	}

	router := api.NewRouter(handler, api.RouterOptions{
		Auth:           api.NewAuthenticator(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	scheduler := api.NewReconciliationScheduler(svc, logger, cfg.ReconcileSchedule, cfg.ReconcileRepair)
	if err := scheduler.Start(); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "database", cfg.DatabasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		<-scheduler.Stop().Done()
		return err
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn("reconciliation still running at shutdown")
	}

	logger.Info("server stopped")
	return nil
}
