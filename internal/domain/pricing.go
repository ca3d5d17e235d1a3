package domain

import (
	"time"

	"github.com/google/uuid"
)

// PriceHistory is one interval of a product's price. End is nil while the
// record is active; a product has at most one active record.
type PriceHistory struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProductID uuid.UUID  `json:"product" db:"product_id"`
	Price     int64      `json:"price" db:"price"`
	Start     time.Time  `json:"start" db:"start_at"`
	End       *time.Time `json:"end" db:"end_at"`
}

func (p *PriceHistory) Active() bool {
	return p.End == nil
}

// Covers reports whether t falls inside [Start, End).
func (p *PriceHistory) Covers(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	return p.End == nil || t.Before(*p.End)
}
