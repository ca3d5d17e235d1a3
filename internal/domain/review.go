package domain

import (
	"time"

	"github.com/google/uuid"
)

// Review is a customer's score for a product. Value carries no range check.
type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ProductID  uuid.UUID `json:"product" db:"product_id"`
	CustomerID uuid.UUID `json:"customer" db:"customer_id"`
	Value      float64   `json:"value" db:"value"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ReviewStats is the aggregate over a product's reviews.
type ReviewStats struct {
	Count   int
	Average float64
}
