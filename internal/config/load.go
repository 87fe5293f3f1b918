package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// AUDIOBRIEF_DATABASE_URL for database.url.
const EnvPrefix = "AUDIOBRIEF"

// defaults seeds viper with a value for every key. Keys without a sensible
// default are registered empty so that AutomaticEnv still resolves them
// during Unmarshal.
var defaults = map[string]any{
	"server.port":      8080,
	"server.log_level": "info",

	"database.url": "",

	"redis.addr":      "localhost:6379",
	"redis.password":  "",
	"redis.db":        0,
	"redis.cache_ttl": 24 * time.Hour,

	"llm.gemini_api_key":      "",
	"llm.model_name":          "gemini-2.0-flash",
	"llm.instructions_path":   "",
	"llm.prompt_template":     "Please summarize the following query: {{.Query}}.",
	"llm.max_retries":         3,
	"llm.retry_delay_seconds": 2,
	"llm.timeout_seconds":     60,
	"llm.max_output_tokens":   4096,
	"llm.temperature":         1.0,

	"tts.command":         "edge-tts",
	"tts.voice":           "en-US-GuyNeural",
	"tts.timeout_seconds": 300,

	"blob.provider":               "vercel",
	"blob.base_url":               "https://blob.vercel-storage.com",
	"blob.token":                  "",
	"blob.bucket":                 "",
	"blob.prefix":                 "audiobooks",
	"blob.unique_names":           false,
	"blob.signed_url_ttl_minutes": 0,

	"notify.telegram_token":   "",
	"notify.telegram_chat_id": 0,
	"notify.kafka_brokers":    "",
	"notify.kafka_topic":      "",

	"task.worker_count":                      2,
	"task.queue_size":                        100,
	"task.stuck_task_age_minutes":            30,
	"task.stuck_task_check_interval_seconds": 60,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs the struct tag rules over a Config.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
