package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const TopicSaleCompleted = "sale.completed"

// OutboxEvent is an integration event written in the same transaction as the
// state change it describes.
type OutboxEvent struct {
	ID        int64           `json:"id"`
	EventID   uuid.UUID       `json:"event_id"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

// SaleCompleted is the payload of TopicSaleCompleted.
type SaleCompleted struct {
	SaleID        uuid.UUID     `json:"sale_id"`
	CustomerID    uuid.UUID     `json:"customer_id"`
	Items         []SaleItem    `json:"items"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Date          time.Time     `json:"date"`
}
