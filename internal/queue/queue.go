// Package queue is a Redis-backed reliable task queue. Dequeued tasks move to
// a processing list and stay there until acknowledged, so a crashed worker's
// tasks are recovered on the next start.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const TaskRecomputeAverage = "recompute_average"

var ErrEmpty = errors.New("queue is empty")

// Task is a unit of background work.
type Task struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ProductID  uuid.UUID `json:"product_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Error      string    `json:"error,omitempty"`

	raw string
}

// NewRecomputeAverage builds the task that refreshes a product's review average.
func NewRecomputeAverage(productID uuid.UUID) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       TaskRecomputeAverage,
		ProductID:  productID,
		EnqueuedAt: time.Now().UTC(),
	}
}

type Enqueuer interface {
	Enqueue(ctx context.Context, task Task) error
}

type Queue interface {
	Enqueuer
	// Dequeue blocks up to timeout and returns ErrEmpty when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	Ack(ctx context.Context, task *Task) error
	// DeadLetter acknowledges the task and parks it with the failure reason.
	DeadLetter(ctx context.Context, task *Task, reason error) error
	// Recover moves unacknowledged tasks back to the pending list.
	Recover(ctx context.Context) (int, error)
	Len(ctx context.Context) (pending, processing, dead int64, err error)
}

type redisQueue struct {
	client     *redis.Client
	pending    string
	processing string
	dead       string
}

// NewRedisQueue stores tasks under name, name:processing and name:dead.
func NewRedisQueue(client *redis.Client, name string) Queue {
	return &redisQueue{
		client:     client,
		pending:    name,
		processing: name + ":processing",
		dead:       name + ":dead",
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.pending, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	raw, err := q.client.BRPopLPush(ctx, q.pending, q.processing, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to dequeue task: %w", err)
	}

	task := &Task{}
	if err := json.Unmarshal([]byte(raw), task); err != nil {
		// Park undecodable payloads so they do not block the queue.
		task = &Task{Type: "invalid", raw: raw}
		if dlErr := q.DeadLetter(ctx, task, err); dlErr != nil {
			return nil, dlErr
		}
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	task.raw = raw
	return task, nil
}

func (q *redisQueue) Ack(ctx context.Context, task *Task) error {
	if err := q.client.LRem(ctx, q.processing, 1, task.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

func (q *redisQueue) DeadLetter(ctx context.Context, task *Task, reason error) error {
	parked := *task
	if reason != nil {
		parked.Error = reason.Error()
	}
	data, err := json.Marshal(parked)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, task.raw)
		pipe.LPush(ctx, q.dead, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to dead-letter task: %w", err)
	}
	return nil
}

func (q *redisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.pending).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover tasks: %w", err)
		}
		moved++
	}
}

func (q *redisQueue) Len(ctx context.Context) (pending, processing, dead int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.pending)
	r := pipe.LLen(ctx, q.processing)
	d := pipe.LLen(ctx, q.dead)
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return p.Val(), r.Val(), d.Val(), nil
}
