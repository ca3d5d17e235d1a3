package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"book-store/internal/access"
	"book-store/internal/cache"
	"book-store/internal/config"
	"book-store/internal/database"
	"book-store/internal/metrics"
	custommiddleware "book-store/internal/middleware"
	"book-store/internal/queue"
	"book-store/internal/repository"
	"book-store/internal/service"
	"book-store/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const serviceName = "bookstore"

// Deps are the collaborators the HTTP API is built from. Redis may be nil,
// which disables rate limiting, response caching and review recomputation.
type Deps struct {
	Store    repository.Store
	Redis    *redis.Client
	Registry *prometheus.Registry
	// Health reports database status for /health.
	Health func() map[string]string
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, rdb *redis.Client) *Server {
	router := NewRouter(cfg, logger, Deps{
		Store:    repository.NewStore(db.DB()),
		Redis:    rdb,
		Registry: metrics.NewRegistry(),
		Health:   db.Health,
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  rdb,
	}

	return server
}

// NewRouter assembles middleware, services and handlers into the API router.
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) http.Handler {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack(cfg.Server.RequestTimeout)...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server))

	if deps.Registry != nil {
		router.Use(metrics.NewServerMetrics(deps.Registry).Middleware)
		router.Handle("/metrics", metrics.Handler(deps.Registry))
	}

	router.Get("/health", healthHandler(deps))

	// Initialize services
	auth := service.NewAuthService(deps.Store, service.AuthOptions{
		JWTSecret:       cfg.JWT.Secret,
		AccessTokenTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTokenTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		OAuthTokenTTL:   time.Duration(cfg.OAuth.AccessTokenExpiry) * time.Second,
	})
	var tasks queue.Enqueuer
	if deps.Redis != nil {
		tasks = queue.NewRedisQueue(deps.Redis, cfg.Queue.Name)
	}
	customers := service.NewCustomerService(deps.Store, logger)
	catalog := service.NewCatalogService(deps.Store, nil, logger)
	pricing := service.NewPricingService(deps.Store, nil, logger)
	carts := service.NewCartService(deps.Store)
	checkout := service.NewCheckoutService(deps.Store, cfg.Checkout.Timeout, nil, logger)
	reviews := service.NewReviewService(deps.Store, tasks, logger)

	// Initialize handlers
	paginator := transport.Paginator{PageSize: cfg.Pagination.PageSize, MaxPageSize: cfg.Pagination.MaxPageSize}
	guard := transport.NewGuard(access.DefaultPolicy(), logger)

	customerHandler := transport.NewCustomerHandler(customers, paginator, logger)
	var rateLimit func(http.Handler) http.Handler
	if deps.Redis != nil {
		customerHandler.WithCache(cache.NewRedisCache(deps.Redis, serviceName), cfg.Cache.ListTTL, cfg.Cache.RetrieveTTL)
		rateLimit = custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         serviceName + ":ratelimit:token",
		}, logger)
	}

	// The token exchange carries an opaque OAuth2 token in the Authorization
	// header, so token routes stay outside JWT authentication.
	transport.NewTokenHandler(auth, logger).RegisterRoutes(router, guard, rateLimit)

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.AuthMiddleware(auth, logger))

		customerHandler.RegisterRoutes(r, guard)
		transport.NewCatalogHandler(catalog, paginator, logger).RegisterRoutes(r, guard)
		transport.NewPriceHandler(pricing, paginator, logger).RegisterRoutes(r, guard)
		transport.NewReviewHandler(reviews, paginator, logger).RegisterRoutes(r, guard)
		transport.NewSaleHandler(carts, checkout, paginator, logger).RegisterRoutes(r, guard)
	})

	return router
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok"}

		if deps.Health != nil {
			db := deps.Health()
			body["database"] = db
			if db["status"] != "up" {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["redis"] = "down"
			} else {
				body["redis"] = "up"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}

// Close releases the database pool and the redis client.
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	var err error
	if s.db != nil {
		err = multierr.Append(err, s.db.Close())
	}
	if s.redis != nil {
		err = multierr.Append(err, s.redis.Close())
	}
	if err != nil {
		s.logger.Error("Failed to close server resources", zap.Error(err))
	}

	s.logger.Sync()
	return err
}
