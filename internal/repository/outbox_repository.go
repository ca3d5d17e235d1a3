package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

// OutboxRepository stores integration events next to the writes they describe.
type OutboxRepository interface {
	Insert(ctx context.Context, eventID uuid.UUID, topic, key string, payload any) error
	// FetchPending locks up to limit unsent events, skipping rows another
	// relay already holds. Call it inside a transaction.
	FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkSent(ctx context.Context, ids []int64, at time.Time) error
}

type outboxRepository struct {
	db DBTX
}

func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Insert(ctx context.Context, eventID uuid.UUID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1, $2, $3, $4)`,
		eventID, topic, key, data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		var rec domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET sent_at = $2 WHERE id = ANY($1)`, ids, at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events sent: %w", err)
	}
	return nil
}
