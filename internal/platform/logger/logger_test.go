package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/curiolab/curio-api/internal/config"
	"github.com/curiolab/curio-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"error", "error"},
		{"invalid falls back to info", "shouty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: tt.level})
			require.NotNil(t, log)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ctx := logger.WithLogger(context.Background(), custom)
		assert.Same(t, custom, logger.FromContext(ctx))
	})

	t.Run("missing logger yields default", func(t *testing.T) {
		t.Parallel()

		assert.NotNil(t, logger.FromContext(context.Background()))
	})
}
