package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how a sale was paid.
type PaymentMethod int

const (
	PaymentPix    PaymentMethod = 1
	PaymentCredit PaymentMethod = 2
	PaymentDebit  PaymentMethod = 3
)

func (m PaymentMethod) Valid() bool {
	return m >= PaymentPix && m <= PaymentDebit
}

func (m PaymentMethod) String() string {
	switch m {
	case PaymentPix:
		return "Pix"
	case PaymentCredit:
		return "Credit"
	case PaymentDebit:
		return "Debit"
	default:
		return "Unknown"
	}
}

// Cart is a customer's set of products intended for purchase.
type Cart struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	CustomerID uuid.UUID   `json:"customer" db:"customer_id"`
	ProductIDs []uuid.UUID `json:"products"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

func (c *Cart) Contains(productID uuid.UUID) bool {
	for _, id := range c.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Sale is the immutable record of a completed checkout.
type Sale struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	CustomerID      uuid.UUID     `json:"customer" db:"customer_id"`
	Items           []SaleItem    `json:"items"`
	Total           int64         `json:"total" db:"total"`
	DeliveryAddress string        `json:"delivery_address" db:"delivery_address"`
	PaymentMethod   PaymentMethod `json:"payment_method" db:"payment_method"`
	Date            time.Time     `json:"date" db:"sold_at"`
}

// SaleItem is a purchased product with the active price it was sold at.
type SaleItem struct {
	ProductID uuid.UUID `json:"product" db:"product_id"`
	Price     int64     `json:"price" db:"price"`
}

// CheckoutState tracks one checkout request.
type CheckoutState int

const (
	CheckoutValidating CheckoutState = iota
	CheckoutPricing
	CheckoutCommitting
	CheckoutCompleted
	CheckoutAborted
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutValidating:
		return "validating"
	case CheckoutPricing:
		return "pricing"
	case CheckoutCommitting:
		return "committing"
	case CheckoutCompleted:
		return "completed"
	case CheckoutAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
