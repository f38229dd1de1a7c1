// Package config provides configuration loading, validation, and management
// for the digest service. It handles reading from YAML files, environment
// overrides, default values, and validating configuration parameters.
package config

import (
	"strings"
	"time"
)

// Default fallback values resolved once at load time. The timezone default is
// also the substitute for unparseable timezone names at schedule computation.
const (
	DefaultTimezone = "America/Los_Angeles"
	DefaultHour     = 19
	DefaultMinute   = 0
)

// Config defines the application configuration for both the ingestor and the
// scheduler processes. Values come from config.yaml with DIGEST_* environment
// variable overrides; changes require a restart, there is no hot reload.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Database DatabaseConfig `mapstructure:"database"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the SQLite database location shared by both processes.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the inbound feed credentials and the monitored
// channel set as a comma-separated list of chat IDs.
type TelegramConfig struct {
	Token    string `mapstructure:"token"    validate:"required"`
	Channels string `mapstructure:"channels"`
}

// GeminiConfig holds the summarizer backend settings.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"             validate:"required"`
	ModelName         string        `mapstructure:"model"               validate:"required"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"min=1s,max=30m"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=0,max=300"`
}

// SMTPConfig holds the outbound mail transport settings.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"     validate:"required"`
	Port     int           `mapstructure:"port"     validate:"min=1,max=65535"`
	Username string        `mapstructure:"username" validate:"required"`
	Password string        `mapstructure:"password" validate:"required"`
	From     string        `mapstructure:"from"     validate:"required,email"`
	To       string        `mapstructure:"to"       validate:"required,email"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s,max=10m"`
}

// DigestConfig controls the preprocessing filters and the query window of
// one digest run.
type DigestConfig struct {
	MinMessageLength int           `mapstructure:"min_message_length" validate:"min=0"`
	ExcludedAuthors  string        `mapstructure:"excluded_authors"`
	Window           time.Duration `mapstructure:"window" validate:"min=1m"`
}

// ScheduleConfig holds the daily trigger: wall-clock hour and minute in the
// named IANA timezone. An invalid timezone name falls back to DefaultTimezone
// at computation time with a logged warning rather than failing here.
type ScheduleConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
	Hour     int    `mapstructure:"hour"     validate:"min=0,max=23"`
	Minute   int    `mapstructure:"minute"   validate:"min=0,max=59"`
}

// ChannelIDs parses the comma-separated monitored channel list, trimming
// whitespace and dropping empty entries.
func (c TelegramConfig) ChannelIDs() []string {
	return splitCSV(c.Channels)
}

// ExcludedAuthorSet parses the comma-separated excluded author list into a
// lookup set.
func (c DigestConfig) ExcludedAuthorSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, a := range splitCSV(c.ExcludedAuthors) {
		set[a] = struct{}{}
	}
	return set
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
