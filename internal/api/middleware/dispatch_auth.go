package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/curiolab/curio-api/internal/api/shared"
	"github.com/curiolab/curio-api/internal/dispatch"
)

// DispatchAuthMiddleware guards the internal worker endpoint with the
// short-lived tokens minted by the HTTP dispatcher.
type DispatchAuthMiddleware struct {
	tokens *dispatch.TokenService
}

// NewDispatchAuthMiddleware creates a new DispatchAuthMiddleware.
func NewDispatchAuthMiddleware(tokens *dispatch.TokenService) *DispatchAuthMiddleware {
	return &DispatchAuthMiddleware{tokens: tokens}
}

// Authenticate verifies the dispatch token from the Authorization header and
// adds the job ID it was minted for to the request context.
func (m *DispatchAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		jobID, err := m.tokens.Verify(r.Context(), parts[1])
		if err != nil {
			if errors.Is(err, dispatch.ErrExpiredToken) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
				return
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), shared.DispatchJobIDKey, jobID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
