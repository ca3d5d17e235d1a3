// Package outbox relays integration events committed to the outbox table to
// the message broker.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-store/internal/domain"
	"book-store/internal/events"
	"book-store/internal/metrics"
	"book-store/internal/repository"

	"go.uber.org/zap"
)

const (
	JobRelay = "outbox_relay"

	defaultBatchSize      = 50
	defaultPollInterval   = time.Second
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 30 * time.Second
)

type RelayParams struct {
	Store     repository.Store
	Publisher events.Publisher
	// Topics maps outbox topics to broker topics. Unmapped topics publish
	// under their own name.
	Topics       map[string]string
	Metrics      *metrics.JobMetrics
	Logger       *zap.Logger
	BatchSize    int
	PollInterval time.Duration
	Now          func() time.Time
}

// Relay delivers outbox events at least once. A batch is marked sent only
// after the broker accepted every event in it.
type Relay struct {
	store        repository.Store
	publisher    events.Publisher
	topics       map[string]string
	metrics      *metrics.JobMetrics
	logger       *zap.Logger
	batchSize    int
	pollInterval time.Duration
	now          func() time.Time
}

func NewRelay(params RelayParams) (*Relay, error) {
	if params.Store == nil {
		return nil, errors.New("store is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	interval := params.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Relay{
		store:        params.Store,
		publisher:    params.Publisher,
		topics:       params.Topics,
		metrics:      params.Metrics,
		logger:       params.Logger.With(zap.String("job", JobRelay)),
		batchSize:    batch,
		pollInterval: interval,
		now:          now,
	}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Outbox relay started", zap.Int("batch_size", r.batchSize))
	backoff := r.pollInterval

	for {
		if ctx.Err() != nil {
			r.logger.Info("Outbox relay stopped")
			return nil
		}

		sent, err := r.RelayBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.metrics.IncFailure(JobRelay)
			r.logger.Error("Outbox relay batch failed", zap.Error(err))
			backoff = nextBackoff(backoff, r.pollInterval, maxBackoff)
			_ = sleep(ctx, backoff)
			continue
		}
		backoff = r.pollInterval

		// A full batch likely means more are waiting.
		if sent == r.batchSize {
			continue
		}
		_ = sleep(ctx, r.pollInterval)
	}
}

// RelayBatch publishes one batch of pending events and returns how many were sent.
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	start := time.Now()
	sent := 0
	err := r.store.WithTx(ctx, func(tx repository.Store) error {
		pending, err := tx.Outbox().FetchPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		if err := r.publish(ctx, pending); err != nil {
			return err
		}

		ids := make([]int64, len(pending))
		for i, event := range pending {
			ids[i] = event.ID
		}
		if err := tx.Outbox().MarkSent(ctx, ids, r.now().UTC()); err != nil {
			return fmt.Errorf("failed to mark events sent: %w", err)
		}
		sent = len(pending)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if sent > 0 {
		r.metrics.ObserveDuration(JobRelay, time.Since(start))
		r.metrics.IncSuccess(JobRelay)
		r.logger.Debug("Outbox events relayed", zap.Int("count", sent))
	}
	return sent, nil
}

// publish sends events grouped by topic, preserving their order within a topic.
func (r *Relay) publish(ctx context.Context, pending []domain.OutboxEvent) error {
	var order []string
	byTopic := map[string][]events.Message{}
	for _, event := range pending {
		topic := r.topic(event.Topic)
		if _, ok := byTopic[topic]; !ok {
			order = append(order, topic)
		}
		byTopic[topic] = append(byTopic[topic], events.Message{
			Key:   event.Key,
			Value: event.Payload,
			Headers: map[string]string{
				"event_id":   event.EventID.String(),
				"event_type": event.Topic,
			},
			Time: event.CreatedAt,
		})
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	for _, topic := range order {
		if err := r.publisher.Publish(publishCtx, topic, byTopic[topic]...); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, err)
		}
	}
	return nil
}

func (r *Relay) topic(name string) string {
	if mapped, ok := r.topics[name]; ok && mapped != "" {
		return mapped
	}
	return name
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
