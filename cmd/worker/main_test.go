package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"book-store/internal/access"
	"book-store/internal/config"
	"book-store/internal/domain"
	"book-store/internal/events"
	"book-store/internal/queue"
	"book-store/internal/repository/memstore"
	"book-store/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, msgs ...events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func workerConfig() *config.Config {
	return &config.Config{
		JWT:    config.JWTConfig{Secret: "worker-test-secret", AccessExpiry: 15, RefreshExpiry: 1},
		OAuth:  config.OAuthConfig{AccessTokenExpiry: 3600},
		Queue:  config.QueueConfig{Name: "worker-test"},
		Worker: config.WorkerConfig{
			MaxAttempts:    3,
			BaseBackoff:    10 * time.Millisecond,
			DequeueTimeout: 50 * time.Millisecond,
			MetricsPort:    "0",
			PurgeInterval:  time.Hour,
		},
		Kafka: config.KafkaConfig{SaleTopic: "bookstore.sales", RelayInterval: 10 * time.Millisecond, BatchSize: 10},
	}
}

func TestServeRecomputesAveragesAndRelaysSales(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := workerConfig()
	logger := zap.NewNop()
	store := memstore.New()
	ctx := context.Background()

	customer, err := service.NewCustomerService(store, logger).Register(ctx, "reader", "reader@example.com", "secret-pass")
	require.NoError(t, err)
	catalog := service.NewCatalogService(store, nil, logger)
	product, err := catalog.CreateProduct(ctx, service.NewProduct{Name: "Dune", Category: domain.CategoryFiction, Price: 990})
	require.NoError(t, err)

	reviews := service.NewReviewService(store, queue.NewRedisQueue(client, cfg.Queue.Name), logger)
	caller := access.Caller{CustomerID: customer.ID, Role: domain.RoleCustomer, Authenticated: true}
	_, err = reviews.Create(ctx, caller, service.NewReview{ProductID: product.ID, Value: 3})
	require.NoError(t, err)
	_, err = reviews.Create(ctx, caller, service.NewReview{ProductID: product.ID, Value: 5})
	require.NoError(t, err)

	saleID := uuid.New()
	require.NoError(t, store.Outbox().Insert(ctx, uuid.New(), domain.TopicSaleCompleted, saleID.String(),
		domain.SaleCompleted{SaleID: saleID, Total: 250}))

	publisher := &recordingPublisher{}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- serve(runCtx, cfg, logger, store, client, publisher) }()

	assert.Eventually(t, func() bool {
		got, err := catalog.GetProduct(ctx, product.ID)
		return err == nil && got.AverageReview == 4
	}, 5*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(publisher.published()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"bookstore.sales"}, publisher.published())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestServeWithoutPublisherSkipsRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memstore.New()
	saleID := uuid.New()
	require.NoError(t, store.Outbox().Insert(context.Background(), uuid.New(), domain.TopicSaleCompleted, saleID.String(),
		domain.SaleCompleted{SaleID: saleID}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, serve(ctx, workerConfig(), zap.NewNop(), store, client, nil))

	stored := store.OutboxEvents()
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].SentAt)
}
