// Package middleware provides HTTP middleware for the chat API.
package middleware

import (
	"net/http"
	"slices"
)

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit := origin != "" && slices.Contains(allowedOrigins, origin)

			if explicit || slices.Contains(allowedOrigins, "*") {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-User-Name")
				w.Header().Add("Vary", "Origin")
				// Credentials only for explicitly listed origins.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Origins turns the configured frontend URL into an allow list. An empty
// value allows any origin without credentials.
func Origins(frontendURL string) []string {
	if frontendURL == "" {
		return []string{"*"}
	}
	return []string{frontendURL}
}
