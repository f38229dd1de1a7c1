// Package tasks implements the digest-and-notify flows executed by the
// scheduler, either on the recurring trigger or on demand.
package tasks

import (
	"log/slog"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/digest"
	"github.com/edgard/digestbot/internal/mailer"
)

// TaskDeps contains all dependencies required by the digest tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Pipeline *digest.Pipeline
	Notifier mailer.Notifier
	Config   *config.Config
}
