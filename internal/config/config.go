package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	TTS      TTSConfig      `mapstructure:"tts" validate:"required"`
	Blob     BlobConfig     `mapstructure:"blob" validate:"required"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig configures the result cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string  `mapstructure:"model_name" validate:"required"`
	InstructionsPath  string  `mapstructure:"instructions_path"`
	PromptTemplate    string  `mapstructure:"prompt_template" validate:"required"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxOutputTokens   int32   `mapstructure:"max_output_tokens" validate:"gt=0"`
	Temperature       float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// Timeout is the upper bound on one summarization call.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTSConfig configures the speech synthesis command.
type TTSConfig struct {
	Command        string `mapstructure:"command" validate:"required"`
	Voice          string `mapstructure:"voice" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// Timeout is the upper bound on one synthesis run.
func (c TTSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BlobConfig selects and configures the artifact store.
type BlobConfig struct {
	Provider            string `mapstructure:"provider" validate:"required,oneof=vercel gcs"`
	BaseURL             string `mapstructure:"base_url" validate:"required_if=Provider vercel,omitempty,url"`
	Token               string `mapstructure:"token" validate:"required_if=Provider vercel"`
	Bucket              string `mapstructure:"bucket" validate:"required_if=Provider gcs"`
	Prefix              string `mapstructure:"prefix"`
	UniqueNames         bool   `mapstructure:"unique_names"`
	SignedURLTTLMinutes int    `mapstructure:"signed_url_ttl_minutes" validate:"gte=0"`
}

// NotifyConfig configures outbound notifications. Every channel is optional.
type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
	KafkaBrokers   string `mapstructure:"kafka_brokers"`
	KafkaTopic     string `mapstructure:"kafka_topic" validate:"required_with=KafkaBrokers"`
}

// TaskConfig tunes the background runner.
type TaskConfig struct {
	WorkerCount                   int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize                     int `mapstructure:"queue_size" validate:"required,gt=0"`
	StuckTaskAgeMinutes           int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	StuckTaskCheckIntervalSeconds int `mapstructure:"stuck_task_check_interval_seconds" validate:"required,gt=0"`
}
