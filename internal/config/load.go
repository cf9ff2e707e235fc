package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (prefix CURIO_, nesting
// with underscores, e.g. CURIO_SERVER_PORT) and an optional config.yaml in the
// working directory. Environment variables take precedence. The result is
// validated before being returned.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults carry the day.
	}

	v.SetEnvPrefix("CURIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not make viper.Unmarshal see env-only keys, so bind
	// every known key explicitly.
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks a Config against its struct validation tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// configKeys lists every viper key so env-only configuration round-trips
// through Unmarshal.
var configKeys = []string{
	"server.port",
	"server.log_level",
	"store.driver",
	"store.database_url",
	"store.redis_url",
	"task.worker_count",
	"task.queue_size",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.max_retries",
	"llm.retry_delay_seconds",
	"image.stock_api_key",
	"image.stock_base_url",
	"image.generative_model",
	"image.timeout_seconds",
	"storage.base_path",
	"storage.public_base_url",
	"dispatch.mode",
	"dispatch.secret",
	"dispatch.worker_url",
	"dispatch.token_lifetime_seconds",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("image.stock_base_url", "https://api.pexels.com")
	v.SetDefault("image.generative_model", "imagen-3.0-generate-002")
	v.SetDefault("image.timeout_seconds", 120)
	v.SetDefault("storage.base_path", "./data/assets")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/assets")
	v.SetDefault("dispatch.mode", "event")
	v.SetDefault("dispatch.token_lifetime_seconds", 300)
}
