/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load ledger.yaml, .env and LEDGER_* overrides
  2. Build the zap logger
  3. Wire store, chart, controller, reports and publishers (app.New)
  4. Start the integrity scheduler
  5. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to ledger.yaml (default: none, built-in defaults)
  -addr    Listen address, overrides server.addr

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the integrity scheduler
  4. Close store and Kafka writer
  5. Exit

EXAMPLES:
  # Run with a config file
  ./server -config=./ledger.yaml

  # Run against an in-memory store
  LEDGER_STORE_DRIVER=memory ./server

  # Run against PostgreSQL
  LEDGER_STORE_DRIVER=postgres LEDGER_STORE_DSN="postgres://localhost/ledger?sslmode=disable" ./server

ENVIRONMENT:
  LEDGER_ADDR, LEDGER_STORE_DRIVER, LEDGER_STORE_DSN, LEDGER_PRECISION,
  LEDGER_ROUND_OFF_ACCOUNT, LEDGER_ROUND_OFF_LIMIT, LEDGER_CHART,
  LEDGER_KAFKA_BROKERS, LEDGER_KAFKA_TOPIC, LEDGER_LOG_MODE, LEDGER_CORS_ORIGINS

SEE ALSO:
  - api/server.go: Router configuration
  - app/app.go: Component wiring
  - config/config.go: Settings
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/app"
	"github.com/warp/ledger-engine/config"
	"github.com/warp/ledger-engine/logging"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	cfgPath := flag.String("config", "", "path to ledger.yaml")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	var baseDir string
	if *cfgPath != "" {
		baseDir = filepath.Dir(*cfgPath)
	}
	ledgerApp, err := app.New(cfg, log, app.Options{BaseDir: baseDir})
	if err != nil {
		return err
	}
	defer func() {
		if err := ledgerApp.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize handler
	handler := api.NewHandler(ledgerApp.Controller, ledgerApp.Chart, ledgerApp.Reports, log)
	handler.Ping = ledgerApp.Ping
	handler.Integrity = api.NewIntegrityScheduler(ledgerApp.Reports, log)
	handler.Integrity.Start(ctx)
	defer handler.Integrity.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
