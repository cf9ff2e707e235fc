package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Store    StoreConfig    `mapstructure:"store" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Image    ImageConfig    `mapstructure:"image" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Dispatch DispatchConfig `mapstructure:"dispatch" validate:"required"`
}

// ServerConfig contains all HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StoreConfig selects and configures the job document store backend.
type StoreConfig struct {
	// Driver is one of memory, postgres, redis.
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres redis"`

	// DatabaseURL is the Postgres connection string (postgres driver only).
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres,omitempty,url"`

	// RedisURL is the Redis connection string (redis driver only).
	RedisURL string `mapstructure:"redis_url" validate:"required_if=Driver redis"`
}

// TaskConfig tunes the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}

// LLMConfig contains the text-generation settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
}

// ImageConfig contains the image provider settings. The stock search key is
// only required when the stock variant can be selected, which is always the
// default, so it is required outright.
type ImageConfig struct {
	StockAPIKey     string `mapstructure:"stock_api_key" validate:"required"`
	StockBaseURL    string `mapstructure:"stock_base_url"`
	GenerativeModel string `mapstructure:"generative_model"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// StorageConfig configures the blob store used by the generative image
// variant.
type StorageConfig struct {
	BasePath      string `mapstructure:"base_path"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
}

// DispatchConfig configures how the launcher hands work to the worker.
type DispatchConfig struct {
	// Mode is "event" (in-process) or "http" (remote worker endpoint).
	Mode string `mapstructure:"mode" validate:"required,oneof=event http"`

	// Secret signs the short-lived dispatch tokens that authenticate the
	// internal worker endpoint.
	Secret string `mapstructure:"secret" validate:"required,min=32"`

	// WorkerURL is the internal worker endpoint (http mode only).
	WorkerURL string `mapstructure:"worker_url" validate:"required_if=Mode http,omitempty,url"`

	// TokenLifetimeSeconds bounds how long a dispatch token stays valid.
	TokenLifetimeSeconds int `mapstructure:"token_lifetime_seconds" validate:"gt=0"`
}
