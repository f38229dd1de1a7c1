// Package ingestor receives inbound messages from the feed, filters them to
// the monitored channel set, and persists them exactly once per identifier.
package ingestor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/logger"
)

// Ingestor owns the feed session and the monitored channel set. Its
// IsConnected status is meant for external supervisors to poll.
type Ingestor struct {
	logger    *slog.Logger
	store     database.Store
	tgBot     *tgbot.Bot
	monitored map[string]struct{}
	connected atomic.Bool
}

// New creates an ingestor and its underlying feed client. The monitored
// channel set is parsed once from configuration; changing it requires a
// restart.
func New(cfg *config.Config, store database.Store, log *slog.Logger) (*Ingestor, error) {
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	ing := &Ingestor{
		logger:    log.With("component", "ingestor"),
		store:     store,
		monitored: make(map[string]struct{}),
	}
	for _, id := range cfg.Telegram.ChannelIDs() {
		ing.monitored[id] = struct{}{}
	}

	// Session readiness is confirmed by GetMe in Run, not at construction.
	b, err := tgbot.New(cfg.Telegram.Token,
		tgbot.WithSkipGetMe(),
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(ing.handleUpdate),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	ing.tgBot = b

	ing.logger.Info("Ingestor created", "monitored_channels", len(ing.monitored))
	return ing, nil
}

// IsConnected reports whether the feed session is established. It flips to
// false as soon as shutdown begins, before the drain completes, so a polling
// supervisor sees the disconnection promptly.
func (i *Ingestor) IsConnected() bool {
	return i.connected.Load()
}

// Run establishes the feed session and blocks receiving events until ctx is
// cancelled. The connected status is only reported after the feed confirms
// readiness.
func (i *Ingestor) Run(ctx context.Context) error {
	me, err := i.tgBot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm feed session: %w", err)
	}
	i.connected.Store(true)
	i.logger.Info("Feed session established", "bot_id", me.ID, "bot_username", me.Username)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		i.tgBot.Start(gCtx)

		// Start returns either because ctx was cancelled or because the
		// feed loop died; either way the session is gone.
		i.connected.Store(false)

		if gCtx.Err() == nil {
			i.logger.Warn("Feed listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("feed listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		// Report disconnected the moment shutdown begins, not after the
		// drain completes.
		i.connected.Store(false)
		i.logger.Info("Shutdown signal received, draining ingestor...")
		return nil
	})

	err = g.Wait()
	i.logger.Info("Ingestor stopped.")
	return err
}

// handleUpdate maps one inbound event to a Message and stores it. Events in
// non-monitored channels are discarded silently; malformed events are logged
// and dropped; a failed store write loses that one message but never stops
// the loop.
func (i *Ingestor) handleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	msg := update.Message

	if msg.ID == 0 || msg.Chat.ID == 0 {
		i.logger.DebugContext(ctx, "Skipping event with missing identifiers", "update_id", update.ID)
		return
	}

	channelID := strconv.FormatInt(msg.Chat.ID, 10)
	if _, ok := i.monitored[channelID]; !ok {
		return
	}

	message := &database.Message{
		ID:        fmt.Sprintf("%d:%d", msg.Chat.ID, msg.ID),
		Content:   msg.Text,
		Author:    authorOf(msg),
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		ChannelID: channelID,
	}

	if err := i.store.SaveMessage(ctx, message); err != nil {
		// Fatal for this write only; the message is lost but the loop
		// continues.
		i.logger.ErrorContext(ctx, "Failed to store message",
			"message_id", message.ID, "channel_id", channelID, "error", err)
		return
	}

	i.logger.DebugContext(ctx, "Message captured", "message_id", message.ID, "channel_id", channelID)
}

func authorOf(msg *models.Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.Username != "" {
		return msg.From.Username
	}
	return msg.From.FirstName
}
