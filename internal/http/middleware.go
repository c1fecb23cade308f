package http

import (
	"context"
	"net/http"
	"strings"

	"vibepay/internal/auth"
)

type contextKey string

const memberIDKey contextKey = "memberID"

// requireAuth verifies the bearer token and threads the member id through
// the request context. Requests without a valid token never reach a handler.
func requireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			memberID, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), memberIDKey, memberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func memberID(r *http.Request) string {
	id, _ := r.Context().Value(memberIDKey).(string)
	return id
}
