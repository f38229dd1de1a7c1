package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at path (optional; defaults apply when absent)
// 3. DIGEST_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		// Config file not found is okay, we'll use defaults and env
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("database.path", "messages.db")

	v.SetDefault("telegram.channels", "")

	// Secrets have no usable defaults, but viper only applies environment
	// overrides during Unmarshal for keys it already knows. Registering them
	// empty keeps DIGEST_* overrides working without a config file; validation
	// rejects the empty values afterwards.
	v.SetDefault("telegram.token", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.to", "")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.timeout", 5*time.Minute)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 5)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.timeout", time.Minute)

	v.SetDefault("digest.min_message_length", 5)
	v.SetDefault("digest.excluded_authors", "bot,system")
	v.SetDefault("digest.window", 24*time.Hour)

	v.SetDefault("schedule.timezone", DefaultTimezone)
	v.SetDefault("schedule.hour", DefaultHour)
	v.SetDefault("schedule.minute", DefaultMinute)
}
