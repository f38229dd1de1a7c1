// Package main contains the entrypoint for the message ingestor process.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/ingestor"
	"github.com/edgard/digestbot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes the ingestor components (config, logger, db, feed client),
// blocks receiving messages until shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	// Closed before exit so the store flush is part of the shutdown, not
	// left to the OS.
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	ing, err := ingestor.New(cfg, store, log)
	if err != nil {
		log.Error("Failed to create ingestor", "error", err)
		return 1
	}

	log.Info("Starting ingestor...")
	runErr := ing.Run(ctx) // Blocks until context is cancelled or the feed dies
	log.Info("Ingestor run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Ingestor stopped due to error", "error", runErr)
		time.Sleep(time.Second) // Allow logs to flush
		return 1
	}

	log.Info("Ingestor stopped gracefully.")
	return 0
}
