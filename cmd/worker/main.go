package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"book-store/internal/config"
	"book-store/internal/database"
	"book-store/internal/domain"
	"book-store/internal/events"
	"book-store/internal/logger"
	"book-store/internal/metrics"
	"book-store/internal/outbox"
	"book-store/internal/queue"
	"book-store/internal/repository"
	"book-store/internal/service"
	"book-store/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const jobPurgeTokens = "purge_expired_tokens"

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Worker stopped unexpectedly", zap.Error(err))
	}
	log.Info("Worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) (err error) {
	dbService, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	rdb, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return multierr.Append(err, dbService.Close())
	}

	kafka := events.NewClient(cfg.Kafka.Brokers)
	var publisher *events.KafkaPublisher
	if kafka.Enabled() {
		if publisher, err = events.NewKafkaPublisher(kafka); err != nil {
			return multierr.Combine(err, rdb.Close(), dbService.Close())
		}
	}

	defer func() {
		closeErr := multierr.Combine(dbService.Close(), rdb.Close())
		if publisher != nil {
			closeErr = multierr.Append(closeErr, publisher.Close())
		}
		err = multierr.Append(err, closeErr)
	}()

	var pub events.Publisher
	if publisher != nil {
		pub = publisher
	}
	return serve(ctx, cfg, log, repository.NewStore(dbService.DB()), rdb, pub)
}

// serve runs every background job until ctx is cancelled or one of them fails.
// publisher may be nil, in which case the outbox relay is not started.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, store repository.Store, rdb *redis.Client, publisher events.Publisher) error {
	reg := metrics.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)

	catalog := service.NewCatalogService(store, nil, log)
	auth := service.NewAuthService(store, service.AuthOptions{
		JWTSecret:       cfg.JWT.Secret,
		AccessTokenTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTokenTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		OAuthTokenTTL:   time.Duration(cfg.OAuth.AccessTokenExpiry) * time.Second,
	})

	reviews, err := worker.NewReviewWorker(worker.ReviewWorkerParams{
		Queue:          queue.NewRedisQueue(rdb, cfg.Queue.Name),
		Recomputer:     service.NewReviewAggregator(store, catalog, log),
		Metrics:        jobMetrics,
		Logger:         logger.Component(log, "review-worker"),
		MaxAttempts:    cfg.Worker.MaxAttempts,
		BaseBackoff:    cfg.Worker.BaseBackoff,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
	})
	if err != nil {
		return err
	}

	purge, err := worker.NewPeriodic(jobPurgeTokens, cfg.Worker.PurgeInterval, func(ctx context.Context) error {
		removed, err := auth.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Info("Purged expired tokens", zap.Int64("count", removed))
		}
		return nil
	}, jobMetrics, logger.Component(log, "token-purge"))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reviews.Run(ctx) })
	g.Go(func() error { return purge.Run(ctx) })

	if publisher != nil {
		relay, err := outbox.NewRelay(outbox.RelayParams{
			Store:        store,
			Publisher:    publisher,
			Topics:       map[string]string{domain.TopicSaleCompleted: cfg.Kafka.SaleTopic},
			Metrics:      jobMetrics,
			Logger:       logger.Component(log, "outbox-relay"),
			BatchSize:    cfg.Kafka.BatchSize,
			PollInterval: cfg.Kafka.RelayInterval,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return relay.Run(ctx) })
	} else {
		log.Warn("KAFKA_BROKERS is empty, outbox relay disabled")
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		log.Info("Worker metrics listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info("Worker started", zap.String("queue", cfg.Queue.Name), zap.Bool("relay", publisher != nil))
	return g.Wait()
}
