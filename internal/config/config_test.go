package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
telegram:
  token: "test-token"
gemini:
  api_key: "test-api-key"
smtp:
  username: "digest@example.com"
  password: "secret"
  from: "digest@example.com"
  to: "owner@example.com"
`

func TestLoadConfig(t *testing.T) {
	t.Run("minimal config applies defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfigFile(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, "info", cfg.Logger.Level)
		assert.True(t, cfg.Logger.JSON)
		assert.Equal(t, "messages.db", cfg.Database.Path)
		assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.ModelName)
		assert.InDelta(t, 0.7, cfg.Gemini.Temperature, 0.001)
		assert.Equal(t, 5*time.Minute, cfg.Gemini.Timeout)
		assert.Equal(t, 3, cfg.Gemini.MaxRetries)
		assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
		assert.Equal(t, 465, cfg.SMTP.Port)
		assert.Equal(t, 5, cfg.Digest.MinMessageLength)
		assert.Equal(t, "bot,system", cfg.Digest.ExcludedAuthors)
		assert.Equal(t, 24*time.Hour, cfg.Digest.Window)
		assert.Equal(t, DefaultTimezone, cfg.Schedule.Timezone)
		assert.Equal(t, DefaultHour, cfg.Schedule.Hour)
		assert.Equal(t, DefaultMinute, cfg.Schedule.Minute)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfigFile(t, minimalConfig+`
logger:
  level: "debug"
  json: false
database:
  path: "/var/lib/digest/chat.db"
schedule:
  timezone: "Europe/Lisbon"
  hour: 8
  minute: 30
digest:
  min_message_length: 10
  window: "48h"
`))
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.False(t, cfg.Logger.JSON)
		assert.Equal(t, "/var/lib/digest/chat.db", cfg.Database.Path)
		assert.Equal(t, "Europe/Lisbon", cfg.Schedule.Timezone)
		assert.Equal(t, 8, cfg.Schedule.Hour)
		assert.Equal(t, 30, cfg.Schedule.Minute)
		assert.Equal(t, 10, cfg.Digest.MinMessageLength)
		assert.Equal(t, 48*time.Hour, cfg.Digest.Window)
	})

	t.Run("environment variables override file", func(t *testing.T) {
		t.Setenv("DIGEST_LOGGER_LEVEL", "warn")
		t.Setenv("DIGEST_SCHEDULE_HOUR", "6")

		cfg, err := LoadConfig(writeConfigFile(t, minimalConfig))
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.Logger.Level)
		assert.Equal(t, 6, cfg.Schedule.Hour)
	})

	t.Run("missing file falls back to defaults and env", func(t *testing.T) {
		t.Setenv("DIGEST_TELEGRAM_TOKEN", "env-token")
		t.Setenv("DIGEST_GEMINI_API_KEY", "env-key")
		t.Setenv("DIGEST_SMTP_USERNAME", "digest@example.com")
		t.Setenv("DIGEST_SMTP_PASSWORD", "secret")
		t.Setenv("DIGEST_SMTP_FROM", "digest@example.com")
		t.Setenv("DIGEST_SMTP_TO", "owner@example.com")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "env-token", cfg.Telegram.Token)
	})

	t.Run("missing required fields fail validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, `
telegram:
  token: "test-token"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("invalid log level fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, minimalConfig+`
logger:
  level: "verbose"
`))
		require.Error(t, err)
	})

	t.Run("invalid recipient address fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, `
telegram:
  token: "test-token"
gemini:
  api_key: "test-api-key"
smtp:
  username: "digest@example.com"
  password: "secret"
  from: "digest@example.com"
  to: "not-an-address"
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("schedule hour out of range fails validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, minimalConfig+`
schedule:
  hour: 24
`))
		require.Error(t, err)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		_, err := LoadConfig(writeConfigFile(t, "telegram: [unclosed"))
		require.Error(t, err)
	})
}

func TestChannelIDs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		channels string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "-1001", []string{"-1001"}},
		{"multiple with whitespace", " -1001 , -1002,-1003 ", []string{"-1001", "-1002", "-1003"}},
		{"drops empty entries", "-1001,,-1002,", []string{"-1001", "-1002"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, TelegramConfig{Channels: tc.channels}.ChannelIDs())
		})
	}
}

func TestExcludedAuthorSet(t *testing.T) {
	t.Parallel()

	set := DigestConfig{ExcludedAuthors: "bot, system ,"}.ExcludedAuthorSet()

	assert.Len(t, set, 2)
	assert.Contains(t, set, "bot")
	assert.Contains(t, set, "system")

	assert.Empty(t, DigestConfig{}.ExcludedAuthorSet())
}
