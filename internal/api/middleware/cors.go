package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS answers preflight requests and adds CORS headers for the allowed
// origins. An allowed origin of "*" admits every origin. Credentials are
// never allowed; callers authenticate with a bearer token.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{TraceHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           600,
	})
}
