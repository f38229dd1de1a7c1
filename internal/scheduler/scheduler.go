// Package scheduler manages the timezone-aware recurring daily trigger that
// fires the digest-and-notify flow, plus the immediate and preview modes that
// bypass it.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/digestbot/internal/config"
)

// JobFunc is the digest-and-notify flow invoked on each fire. A returned
// error marks the run as failed; the schedule continues to the next
// occurrence regardless.
type JobFunc func(ctx context.Context) error

// FireInfo describes the next scheduled fire.
type FireInfo struct {
	NextFire time.Time
	Until    time.Duration
	Timezone string
}

// LoadLocation resolves an IANA timezone name. An unknown name falls back to
// the documented default with a logged warning instead of failing.
func LoadLocation(name string, logger *slog.Logger) *time.Location {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Invalid timezone, falling back to default",
			"timezone", name, "default", config.DefaultTimezone, "error", err)
		loc, err = time.LoadLocation(config.DefaultTimezone)
		if err != nil {
			// The default zone ships with the tzdata the binary links against.
			logger.Error("Default timezone unavailable, using UTC", "error", err)
			return time.UTC
		}
	}
	return loc
}

// NextFire computes the next wall-clock occurrence of hour:minute in loc
// strictly after now, and the remaining duration until it. Building the
// candidate with time.Date in the target zone keeps the result correct
// across daylight-saving transitions.
func NextFire(loc *time.Location, hour, minute int, now time.Time) (time.Time, time.Duration) {
	local := now.In(loc)

	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		tomorrow := local.AddDate(0, 0, 1)
		next = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, loc)
	}

	return next, next.Sub(local)
}

// DigestScheduler owns the recurring daily job. It is idle until Start arms
// it; RunNow and Preview work without arming anything.
type DigestScheduler struct {
	logger   *slog.Logger
	location *time.Location
	hour     int
	minute   int
	job      JobFunc

	mu        sync.Mutex
	scheduler gocron.Scheduler
	running   bool
}

// New creates a scheduler for the configured daily fire time. The timezone
// fallback is applied here, once, so every later computation uses the same
// resolved location.
func New(cfg config.ScheduleConfig, job JobFunc, logger *slog.Logger) *DigestScheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "scheduler")

	return &DigestScheduler{
		logger:   log,
		location: LoadLocation(cfg.Timezone, log),
		hour:     cfg.Hour,
		minute:   cfg.Minute,
		job:      job,
	}
}

// Preview returns the next fire time relative to now without arming the
// recurring job.
func (s *DigestScheduler) Preview(now time.Time) FireInfo {
	next, until := NextFire(s.location, s.hour, s.minute, now)
	return FireInfo{
		NextFire: next,
		Until:    until,
		Timezone: s.location.String(),
	}
}

// RunNow executes the digest-and-notify flow immediately and synchronously,
// with no scheduling involved.
func (s *DigestScheduler) RunNow(ctx context.Context) error {
	s.logger.Info("Running digest job immediately")
	return s.runJob(ctx)
}

// Start arms the recurring daily job and blocks until ctx is cancelled, then
// shuts the scheduler down gracefully, waiting for a run in flight.
func (s *DigestScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}

	gs, err := gocron.NewScheduler(gocron.WithLocation(s.location))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = gs.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(s.hour), uint(s.minute), 0),
		)),
		gocron.NewTask(
			func(taskCtx context.Context) {
				s.logger.Info("Running scheduled digest job")
				startTime := time.Now()
				if jobErr := s.runJob(taskCtx); jobErr != nil {
					// A failed run never unregisters the job; the next
					// attempt is the next scheduled occurrence.
					s.logger.Error("Scheduled digest job failed", "error", jobErr)
				}
				s.logger.Info("Finished scheduled digest job", "duration", time.Since(startTime))
			},
			ctx,
		),
		gocron.WithName("daily_digest"),
	)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule daily digest job: %w", err)
	}

	gs.Start()
	s.scheduler = gs
	s.running = true
	s.mu.Unlock()

	info := s.Preview(time.Now())
	s.logger.Info("Scheduler armed",
		"next_fire", info.NextFire.Format(time.RFC3339),
		"until", info.Until.Round(time.Second),
		"timezone", info.Timezone)

	<-ctx.Done()
	s.logger.Info("Shutdown signal received, stopping scheduler...")
	return s.stop()
}

func (s *DigestScheduler) runJob(ctx context.Context) error {
	if s.job == nil {
		return fmt.Errorf("no digest job configured")
	}
	return s.job(ctx)
}

func (s *DigestScheduler) stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown() // Shutdown waits for running jobs
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	s.scheduler = nil
	return err
}
