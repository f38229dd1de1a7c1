package tasks

import (
	"context"
	"fmt"
	"time"
)

// NewDailyDigestTask creates the digest-and-notify flow: read the configured
// window of monitored messages from the store, run the pipeline, and deliver
// the result through the notifier. Any failure surfaces as the run's failure;
// the notifier never sees a partial digest.
func NewDailyDigestTask(deps TaskDeps) func(ctx context.Context) error {
	log := deps.Logger.With("task", "daily_digest")
	channelIDs := deps.Config.Telegram.ChannelIDs()
	window := deps.Config.Digest.Window

	return func(ctx context.Context) error {
		startTime := time.Now()
		since := startTime.UTC().Add(-window)
		log.InfoContext(ctx, "Starting daily digest run", "since", since, "channels", len(channelIDs))

		messages, err := deps.Store.GetMessagesSince(ctx, since, channelIDs)
		if err != nil {
			return fmt.Errorf("failed to read messages for digest: %w", err)
		}
		log.InfoContext(ctx, "Retrieved messages from store", "count", len(messages))

		digestText, stats, err := deps.Pipeline.Run(ctx, messages, startTime)
		if err != nil {
			return fmt.Errorf("digest pipeline failed: %w", err)
		}

		if err := deps.Notifier.Send(ctx, digestText); err != nil {
			return fmt.Errorf("failed to deliver digest: %w", err)
		}

		log.InfoContext(ctx, "Daily digest run completed",
			"total_messages", stats.TotalMessages,
			"active_channels", stats.ActiveChannels,
			"unique_contributors", stats.UniqueContributors,
			"duration", time.Since(startTime))
		return nil
	}
}
