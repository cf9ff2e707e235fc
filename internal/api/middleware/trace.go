package middleware

import (
	"log/slog"
	"net/http"

	"github.com/curiolab/curio-api/internal/api/shared"
)

// traceHeader is echoed on every response so a client can quote the trace ID
// when reporting a failed job request.
const traceHeader = "X-Trace-Id"

// TraceMiddleware assigns each request a trace ID, stores it in the request
// context, and echoes it in the response header. Apply it before any handler
// that logs or writes error responses so they all share the same ID.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		traceID := shared.GetTraceID(ctx)
		w.Header().Set(traceHeader, traceID)

		slog.Debug("request started",
			slog.String("trace_id", traceID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
