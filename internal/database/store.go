package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for message persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a message. A message whose ID already exists is
	// left untouched and the call succeeds (insert-or-ignore).
	SaveMessage(ctx context.Context, message *Message) error

	// GetMessagesSince returns all messages with timestamp >= since,
	// restricted to channelIDs when non-empty, newest first.
	GetMessagesSince(ctx context.Context, since time.Time, channelIDs []string) ([]Message, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage inserts a new message record with insert-or-ignore semantics:
// the first write for a given ID wins and duplicates are absorbed silently.
// Each call is a single self-contained statement so a writer in another
// process never waits on a held transaction.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if message.ID == "" {
		return fmt.Errorf("message must have a non-empty id")
	}
	if message.ChannelID == "" {
		return fmt.Errorf("message must have a non-empty channel_id")
	}
	if message.Timestamp.IsZero() {
		return fmt.Errorf("message must have a non-zero timestamp")
	}

	// Timestamps are normalized to UTC on write so window queries compare
	// consistently regardless of the feed's zone.
	message.Timestamp = message.Timestamp.UTC()

	query := `
        INSERT OR IGNORE INTO messages (id, content, author, timestamp, channel_id)
        VALUES (:id, :content, :author, :timestamp, :channel_id);
    `

	result, err := s.db.NamedExecContext(ctx, query, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"message_id", message.ID, "channel_id", message.ChannelID, "error", err)
		return fmt.Errorf("failed to save message %s: %w", message.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		s.logger.DebugContext(ctx, "Duplicate message ignored", "message_id", message.ID)
		return nil
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"message_id", message.ID, "channel_id", message.ChannelID)
	return nil
}

// GetMessagesSince retrieves all messages with timestamp >= since, optionally
// restricted to channelIDs, ordered by timestamp descending. No matching rows
// yields an empty slice, not an error.
func (s *sqlxStore) GetMessagesSince(ctx context.Context, since time.Time, channelIDs []string) ([]Message, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	since = since.UTC()

	var (
		query string
		args  []any
		err   error
	)

	if len(channelIDs) > 0 {
		query, args, err = sqlx.In(`
            SELECT id, content, author, timestamp, channel_id
            FROM messages
            WHERE timestamp >= ? AND channel_id IN (?)
            ORDER BY timestamp DESC;
        `, since, channelIDs)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error building message query", "error", err)
			return nil, fmt.Errorf("failed to build message query: %w", err)
		}
		query = s.db.Rebind(query)
	} else {
		query = `
            SELECT id, content, author, timestamp, channel_id
            FROM messages
            WHERE timestamp >= ?
            ORDER BY timestamp DESC;
        `
		args = []any{since}
	}

	messages := []Message{}
	s.logger.DebugContext(ctx, "Fetching messages", "since", since, "channel_count", len(channelIDs))
	err = s.db.SelectContext(ctx, &messages, query, args...)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages", "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting messages", "since", since, "error", err)
		return nil, fmt.Errorf("failed to get messages since %s: %w", since.Format(time.RFC3339), err)
	}

	s.logger.DebugContext(ctx, "Fetched messages successfully", "count", len(messages))
	return messages, nil
}
