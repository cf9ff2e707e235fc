package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// shutdownGracePeriod bounds how long in-flight HTTP requests may finish
// after a shutdown is requested. Background image tasks are drained
// separately by cleanup, after the listener is closed.
const shutdownGracePeriod = 10 * time.Second

// startHTTPServer runs the HTTP server until a shutdown signal arrives or
// the context is cancelled, then stops accepting requests, drains in-flight
// work, and releases the job store.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server",
			"port", app.config.Server.Port,
			"store_driver", app.config.Store.Driver,
			"dispatch_mode", app.config.Dispatch.Mode)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case sig := <-shutdownCh:
		app.logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		app.logger.Info("Context cancelled, shutting down")
	case err := <-serveErr:
		// The listener died before any shutdown was requested. Still run
		// cleanup so the task runner and store connections are not left open.
		app.cleanup()
		return fmt.Errorf("listen failed: %w", err)
	}

	// Close the listener first so no new jobs arrive, then give in-flight
	// requests the grace period. The task runner keeps working until
	// cleanup stops it, so accepted jobs finish their image fan-out.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Server shutdown failed", "error", err)
		app.cleanup()
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.cleanup()

	app.logger.Info("Server shutdown completed")
	return nil
}
