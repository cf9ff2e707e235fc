package config_test

import (
	"testing"

	"github.com/curiolab/curio-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal returns a config that passes validation; tests mutate one field at
// a time from here.
func minimal() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "info"},
		Store:  config.StoreConfig{Driver: "memory"},
		Task:   config.TaskConfig{WorkerCount: 2, QueueSize: 100},
		LLM:    config.LLMConfig{GeminiAPIKey: "test-key", ModelName: "gemini-2.0-flash"},
		Image:  config.ImageConfig{StockAPIKey: "stock-key", TimeoutSeconds: 120},
		Dispatch: config.DispatchConfig{
			Mode:                 "event",
			Secret:               "0123456789abcdef0123456789abcdef",
			TokenLifetimeSeconds: 300,
		},
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CURIO_SERVER_PORT", "9999")
	t.Setenv("CURIO_SERVER_LOG_LEVEL", "debug")
	t.Setenv("CURIO_LLM_GEMINI_API_KEY", "env-key")
	t.Setenv("CURIO_IMAGE_STOCK_API_KEY", "stock-env-key")
	t.Setenv("CURIO_DISPATCH_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "env-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 120, cfg.Image.TimeoutSeconds)
	assert.Equal(t, "event", cfg.Dispatch.Mode)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("CURIO_LLM_GEMINI_API_KEY", "")
	t.Setenv("CURIO_IMAGE_STOCK_API_KEY", "stock-key")
	t.Setenv("CURIO_DISPATCH_SECRET", "0123456789abcdef0123456789abcdef")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *config.Config) {}},
		{name: "bad port", mutate: func(c *config.Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *config.Config) { c.Server.LogLevel = "loud" }, wantErr: true},
		{name: "unknown store driver", mutate: func(c *config.Config) { c.Store.Driver = "etcd" }, wantErr: true},
		{
			name:    "postgres driver needs url",
			mutate:  func(c *config.Config) { c.Store.Driver = "postgres" },
			wantErr: true,
		},
		{
			name: "postgres driver with url",
			mutate: func(c *config.Config) {
				c.Store.Driver = "postgres"
				c.Store.DatabaseURL = "postgres://localhost:5432/curio"
			},
		},
		{
			name:    "redis driver needs url",
			mutate:  func(c *config.Config) { c.Store.Driver = "redis" },
			wantErr: true,
		},
		{
			name:    "short dispatch secret",
			mutate:  func(c *config.Config) { c.Dispatch.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "http dispatch needs worker url",
			mutate:  func(c *config.Config) { c.Dispatch.Mode = "http" },
			wantErr: true,
		},
		{
			name: "http dispatch with worker url",
			mutate: func(c *config.Config) {
				c.Dispatch.Mode = "http"
				c.Dispatch.WorkerURL = "http://worker.internal:8080"
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := minimal()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
