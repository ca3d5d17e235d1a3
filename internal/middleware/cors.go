package middleware

import (
	"net/http"
	"time"

	"book-store/internal/config"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORSMiddleware allows browser clients from the configured origins. The
// development environment accepts any origin.
func CORSMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if cfg.Env == "development" || len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"Link", "Retry-After", "Vary", "X-Cache",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// DefaultMiddlewareStack returns the request plumbing every route shares.
// A zero timeout leaves request contexts unbounded.
func DefaultMiddlewareStack(requestTimeout time.Duration) []func(http.Handler) http.Handler {
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	}
	if requestTimeout > 0 {
		stack = append(stack, middleware.Timeout(requestTimeout))
	}
	return stack
}
