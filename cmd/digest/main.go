// Package main contains the entrypoint for the digest scheduler process.
// Without flags it arms the recurring daily job; -run-now executes one digest
// immediately and -preview prints the next fire time without arming anything.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/digest"
	"github.com/edgard/digestbot/internal/gemini"
	"github.com/edgard/digestbot/internal/logger"
	"github.com/edgard/digestbot/internal/mailer"
	"github.com/edgard/digestbot/internal/scheduler"
	"github.com/edgard/digestbot/internal/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	runNow := flag.Bool("run-now", false, "Run the digest job immediately and exit")
	preview := flag.Bool("preview", false, "Print the next scheduled fire time and exit")
	timezone := flag.String("timezone", "", "Override the configured timezone for scheduling")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}
	if *timezone != "" {
		cfg.Schedule.Timezone = *timezone
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	// Preview needs only the schedule configuration; it must not require
	// working summarizer or mail credentials.
	if *preview {
		sched := scheduler.New(cfg.Schedule, nil, log)
		info := sched.Preview(time.Now())
		fmt.Printf("Next digest scheduled for: %s\n", info.NextFire.Format(time.RFC1123))
		fmt.Printf("Time until next digest: %s\n", info.Until.Round(time.Second))
		fmt.Printf("Timezone: %s\n", info.Timezone)
		return 0
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	pipeline := digest.NewPipeline(cfg.Digest, gemClient, log)
	notifier := mailer.NewNotifier(cfg.SMTP, log)

	job := tasks.NewDailyDigestTask(tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Pipeline: pipeline,
		Notifier: notifier,
		Config:   cfg,
	})
	sched := scheduler.New(cfg.Schedule, job, log)

	if *runNow {
		if err := sched.RunNow(ctx); err != nil {
			log.Error("Digest run failed", "error", err)
			return 1
		}
		log.Info("Digest run completed successfully.")
		return 0
	}

	log.Info("Starting scheduler...")
	runErr := sched.Start(ctx) // Blocks until context is cancelled

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Scheduler stopped due to error", "error", runErr)
		time.Sleep(time.Second) // Allow logs to flush
		return 1
	}

	log.Info("Scheduler stopped gracefully.")
	return 0
}
