package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/curiolab/curio-api/internal/api"
	apiMiddleware "github.com/curiolab/curio-api/internal/api/middleware"
	"github.com/curiolab/curio-api/internal/dispatch"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware) // trace IDs for error correlation

	// Create API handlers using the application's services
	jobHandler := api.NewJobHandler(app.jobService)
	workerHandler := api.NewWorkerHandler(app.taskFactory, app.taskRunner)
	dispatchAuth := apiMiddleware.NewDispatchAuthMiddleware(app.tokens)

	// Public job endpoints
	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", jobHandler.StartJob)
		r.Get("/jobs/{jobID}", jobHandler.GetJob)
	})

	// Internal worker endpoint, authenticated with per-job dispatch tokens.
	// Registered in both dispatch modes so a remote launcher can always
	// reach this instance.
	r.Group(func(r chi.Router) {
		r.Use(dispatchAuth.Authenticate)
		r.Post(dispatch.WorkerEndpointPath, workerHandler.EnqueueConceptGeneration)
	})

	// Generated assets, when the generative image variant is enabled
	if app.fileStore != nil {
		fileServer := http.StripPrefix("/assets/", http.FileServer(http.Dir(app.fileStore.BasePath())))
		r.Get("/assets/*", fileServer.ServeHTTP)
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", app.metricsHandler)

	return r
}
