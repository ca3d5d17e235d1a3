package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"book-store/internal/metrics"
	"book-store/internal/queue"
	"book-store/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedRecomputer returns the queued errors in order, then succeeds.
type scriptedRecomputer struct {
	mu     sync.Mutex
	errs   []error
	always error
	calls  []uuid.UUID
}

func (r *scriptedRecomputer) RecomputeAverage(ctx context.Context, productID uuid.UUID) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, productID)
	if r.always != nil {
		return 0, r.always
	}
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return 0, err
	}
	return 4.0, nil
}

func (r *scriptedRecomputer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestWorker(t *testing.T, recomputer Recomputer) (*ReviewWorker, queue.Queue, *prometheus.Registry) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := queue.NewRedisQueue(client, "test:tasks")
	reg := prometheus.NewRegistry()
	w, err := NewReviewWorker(ReviewWorkerParams{
		Queue:          q,
		Recomputer:     recomputer,
		Metrics:        metrics.NewJobMetrics(reg),
		Logger:         zap.NewNop(),
		MaxAttempts:    3,
		BaseBackoff:    time.Millisecond,
		DequeueTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return w, q, reg
}

func queueLen(t *testing.T, q queue.Queue) (int64, int64, int64) {
	t.Helper()
	pending, processing, dead, err := q.Len(context.Background())
	require.NoError(t, err)
	return pending, processing, dead
}

func TestReviewWorkerAcksSuccessfulTask(t *testing.T) {
	ctx := context.Background()
	recomputer := &scriptedRecomputer{}
	w, q, _ := newTestWorker(t, recomputer)

	productID := uuid.New()
	require.NoError(t, q.Enqueue(ctx, queue.NewRecomputeAverage(productID)))

	found, err := w.processNext(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []uuid.UUID{productID}, recomputer.calls)

	pending, processing, dead := queueLen(t, q)
	assert.Zero(t, pending+processing+dead)
}

func TestReviewWorkerRetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	transient := errors.New("connection reset")
	recomputer := &scriptedRecomputer{errs: []error{transient, transient}}
	w, q, _ := newTestWorker(t, recomputer)

	require.NoError(t, q.Enqueue(ctx, queue.NewRecomputeAverage(uuid.New())))

	_, err := w.processNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, recomputer.callCount())

	_, processing, dead := queueLen(t, q)
	assert.Zero(t, processing)
	assert.Zero(t, dead)
}

func TestReviewWorkerDeadLettersAfterThreeAttempts(t *testing.T) {
	ctx := context.Background()
	recomputer := &scriptedRecomputer{always: errors.New("database unavailable")}
	w, q, reg := newTestWorker(t, recomputer)

	require.NoError(t, q.Enqueue(ctx, queue.NewRecomputeAverage(uuid.New())))

	_, err := w.processNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, recomputer.callCount())

	pending, processing, dead := queueLen(t, q)
	assert.Zero(t, pending)
	assert.Zero(t, processing)
	assert.Equal(t, int64(1), dead)

	failures, err := seriesCount(reg, "bookstore_job_failure_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failures)
}

func TestReviewWorkerDoesNotRetryPermanentErrors(t *testing.T) {
	ctx := context.Background()
	recomputer := &scriptedRecomputer{always: service.ErrNoReviews}
	w, q, _ := newTestWorker(t, recomputer)

	require.NoError(t, q.Enqueue(ctx, queue.NewRecomputeAverage(uuid.New())))

	_, err := w.processNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recomputer.callCount())

	pending, processing, dead := queueLen(t, q)
	assert.Zero(t, pending+processing+dead)
}

func TestReviewWorkerDeadLettersUnknownTaskTypes(t *testing.T) {
	ctx := context.Background()
	recomputer := &scriptedRecomputer{}
	w, q, _ := newTestWorker(t, recomputer)

	task := queue.NewRecomputeAverage(uuid.New())
	task.Type = "resize_cover"
	require.NoError(t, q.Enqueue(ctx, task))

	_, err := w.processNext(ctx)
	require.NoError(t, err)
	assert.Zero(t, recomputer.callCount())

	_, _, dead := queueLen(t, q)
	assert.Equal(t, int64(1), dead)
}

func TestReviewWorkerRunRecoversUnackedTasks(t *testing.T) {
	recomputer := &scriptedRecomputer{}
	w, q, _ := newTestWorker(t, recomputer)

	// A previous process dequeued this task and died before acknowledging it.
	require.NoError(t, q.Enqueue(context.Background(), queue.NewRecomputeAverage(uuid.New())))
	_, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return recomputer.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	pending, processing, _ := queueLen(t, q)
	assert.Zero(t, pending+processing)
}

func TestNewReviewWorkerRequiresDependencies(t *testing.T) {
	_, err := NewReviewWorker(ReviewWorkerParams{Logger: zap.NewNop()})
	assert.Error(t, err)
}
