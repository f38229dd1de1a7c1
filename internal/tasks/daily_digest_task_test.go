package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/digest"
)

type fakeStore struct {
	messages  []database.Message
	err       error
	lastSince time.Time
	lastIDs   []string
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) SaveMessage(context.Context, *database.Message) error { return nil }

func (f *fakeStore) GetMessagesSince(_ context.Context, since time.Time, channelIDs []string) ([]database.Message, error) {
	f.lastSince = since
	f.lastIDs = channelIDs
	return f.messages, f.err
}

type fakeSummarizer struct {
	err error
}

func (f *fakeSummarizer) Summarize(context.Context, string, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "summary", nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, body)
	return nil
}

func testDeps(store *fakeStore, summarizer digest.Summarizer, notifier *fakeNotifier) TaskDeps {
	cfg := &config.Config{}
	cfg.Telegram.Channels = "-1001,-1002"
	cfg.Digest.MinMessageLength = 5
	cfg.Digest.ExcludedAuthors = "bot,system"
	cfg.Digest.Window = 24 * time.Hour

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return TaskDeps{
		Logger:   log,
		Store:    store,
		Pipeline: digest.NewPipeline(cfg.Digest, summarizer, log),
		Notifier: notifier,
		Config:   cfg,
	}
}

func TestDailyDigestTask(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("delivers digest for stored messages", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{messages: []database.Message{
			{ID: "-1001:1", Content: "hello there", Author: "alice", Timestamp: time.Now().UTC(), ChannelID: "-1001"},
		}}
		notifier := &fakeNotifier{}
		task := NewDailyDigestTask(testDeps(store, &fakeSummarizer{}, notifier))

		before := time.Now().UTC().Add(-24 * time.Hour)
		require.NoError(t, task(ctx))
		after := time.Now().UTC().Add(-24 * time.Hour)

		assert.Equal(t, []string{"-1001", "-1002"}, store.lastIDs)
		assert.False(t, store.lastSince.Before(before))
		assert.False(t, store.lastSince.After(after))

		require.Len(t, notifier.sent, 1)
		assert.Contains(t, notifier.sent[0], "Daily Digest")
		assert.Contains(t, notifier.sent[0], "- Total Messages: 1")
	})

	t.Run("empty window still delivers the sentinel", func(t *testing.T) {
		t.Parallel()

		notifier := &fakeNotifier{}
		task := NewDailyDigestTask(testDeps(&fakeStore{}, &fakeSummarizer{}, notifier))

		require.NoError(t, task(ctx))
		require.Len(t, notifier.sent, 1)
		assert.Equal(t, digest.NoMessagesDigest, notifier.sent[0])
	})

	t.Run("store failure fails the run without notifying", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("database locked")
		notifier := &fakeNotifier{}
		task := NewDailyDigestTask(testDeps(&fakeStore{err: wantErr}, &fakeSummarizer{}, notifier))

		assert.ErrorIs(t, task(ctx), wantErr)
		assert.Empty(t, notifier.sent)
	})

	t.Run("summarizer failure fails the run without notifying", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("model unavailable")
		store := &fakeStore{messages: []database.Message{
			{ID: "-1001:1", Content: "hello there", Author: "alice", Timestamp: time.Now().UTC(), ChannelID: "-1001"},
		}}
		notifier := &fakeNotifier{}
		task := NewDailyDigestTask(testDeps(store, &fakeSummarizer{err: wantErr}, notifier))

		assert.ErrorIs(t, task(ctx), wantErr)
		assert.Empty(t, notifier.sent)
	})

	t.Run("delivery failure surfaces", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("smtp auth failed")
		task := NewDailyDigestTask(testDeps(&fakeStore{}, &fakeSummarizer{}, &fakeNotifier{err: wantErr}))

		assert.ErrorIs(t, task(ctx), wantErr)
	})
}
