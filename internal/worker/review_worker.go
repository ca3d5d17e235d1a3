// Package worker runs the background jobs of the store: review average
// recomputation from the task queue and periodic maintenance.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-store/internal/metrics"
	"book-store/internal/queue"
	"book-store/internal/service"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	JobRecomputeAverage = "recompute_average"

	defaultMaxAttempts    = 3
	defaultBaseBackoff    = 500 * time.Millisecond
	defaultDequeueTimeout = 5 * time.Second
)

// Recomputer refreshes a product's review average.
type Recomputer interface {
	RecomputeAverage(ctx context.Context, productID uuid.UUID) (float64, error)
}

type ReviewWorkerParams struct {
	Queue          queue.Queue
	Recomputer     Recomputer
	Metrics        *metrics.JobMetrics
	Logger         *zap.Logger
	MaxAttempts    int
	BaseBackoff    time.Duration
	DequeueTimeout time.Duration
}

// ReviewWorker consumes recompute tasks with at-least-once semantics. Each
// task gets a bounded number of attempts before it is dead-lettered.
type ReviewWorker struct {
	queue          queue.Queue
	recomputer     Recomputer
	metrics        *metrics.JobMetrics
	logger         *zap.Logger
	maxAttempts    int
	baseBackoff    time.Duration
	dequeueTimeout time.Duration
}

func NewReviewWorker(params ReviewWorkerParams) (*ReviewWorker, error) {
	if params.Queue == nil {
		return nil, errors.New("task queue is required")
	}
	if params.Recomputer == nil {
		return nil, errors.New("recomputer is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := params.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	timeout := params.DequeueTimeout
	if timeout <= 0 {
		timeout = defaultDequeueTimeout
	}

	return &ReviewWorker{
		queue:          params.Queue,
		recomputer:     params.Recomputer,
		metrics:        params.Metrics,
		logger:         params.Logger.With(zap.String("job", JobRecomputeAverage)),
		maxAttempts:    attempts,
		baseBackoff:    backoff,
		dequeueTimeout: timeout,
	}, nil
}

// Run requeues tasks left unacknowledged by a previous process, then consumes
// until ctx is cancelled.
func (w *ReviewWorker) Run(ctx context.Context) error {
	recovered, err := w.queue.Recover(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}
	if recovered > 0 {
		w.logger.Info("Recovered unacknowledged tasks", zap.Int("count", recovered))
	}

	w.logger.Info("Review worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info("Review worker stopped")
			return nil
		}

		if _, err := w.processNext(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("Review worker iteration failed", zap.Error(err))
			if err := sleep(ctx, w.baseBackoff); err != nil {
				continue
			}
		}
	}
}

// processNext handles at most one task and reports whether one was found.
func (w *ReviewWorker) processNext(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
	if errors.Is(err, queue.ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, w.handle(ctx, task)
}

func (w *ReviewWorker) handle(ctx context.Context, task *queue.Task) error {
	logger := w.logger.With(
		zap.String("task_id", task.ID),
		zap.String("product_id", task.ProductID.String()),
	)
	// Acknowledgements must land even when shutdown cancels ctx mid-task.
	ackCtx := context.WithoutCancel(ctx)

	if task.Type != queue.TaskRecomputeAverage {
		logger.Error("Unknown task type", zap.String("type", task.Type))
		w.metrics.IncFailure(JobRecomputeAverage)
		return w.queue.DeadLetter(ackCtx, task, fmt.Errorf("unknown task type %q", task.Type))
	}

	start := time.Now()
	attempts := 0
	backoff := retry.WithMaxRetries(uint64(w.maxAttempts-1), retry.NewExponential(w.baseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		_, err := w.recomputer.RecomputeAverage(ctx, task.ProductID)
		if err == nil || service.IsPermanent(err) {
			return err
		}
		logger.Warn("Recompute attempt failed", zap.Int("attempt", attempts), zap.Error(err))
		return retry.RetryableError(err)
	})
	w.metrics.ObserveDuration(JobRecomputeAverage, time.Since(start))

	switch {
	case err == nil:
		w.metrics.IncSuccess(JobRecomputeAverage)
		return w.queue.Ack(ackCtx, task)
	case service.IsPermanent(err):
		logger.Info("Recompute skipped", zap.Error(err))
		return w.queue.Ack(ackCtx, task)
	case ctx.Err() != nil:
		// Left in the processing list; the next start recovers it.
		return ctx.Err()
	default:
		logger.Error("Recompute failed, task dead-lettered",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		w.metrics.IncFailure(JobRecomputeAverage)
		return w.queue.DeadLetter(ackCtx, task, err)
	}
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
