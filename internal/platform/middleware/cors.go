package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a middleware that lets browsers on any origin read the public endpoints.
// Only safe methods are advertised since the API exposes no write operations.
func CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"traceparent",
			"X-Request-Id",
		},
		ExposedHeaders: []string{"Link", "Retry-After", "X-Request-Id"},
		MaxAge:         300,
	})
}
