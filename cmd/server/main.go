// Package main implements the entry point for the Curio API server
// which orchestrates asynchronous concept-generation jobs: LLM text
// generation fanned out into per-concept image tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/curiolab/curio-api/internal/config"
	"github.com/curiolab/curio-api/internal/platform/logger"
)

// main is the entry point for the curio-api server. It initializes
// configuration, sets up logging, builds the application dependency graph,
// and runs the HTTP server until a shutdown signal arrives.
func main() {
	ctx := context.Background()

	cfg, logr, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app, err := newApplication(ctx, cfg, logr)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
// Returns the loaded config, the root logger, and any initialization error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logr := logger.Setup(cfg.Server)

	logr.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"dispatch_mode", cfg.Dispatch.Mode)

	if cfg.Store.DatabaseURL != "" {
		logr.Debug("Database configuration", "url_present", true)
	}
	if cfg.LLM.GeminiAPIKey != "" {
		logr.Debug("LLM configuration", "api_key_present", true)
	}

	return cfg, logr, nil
}
