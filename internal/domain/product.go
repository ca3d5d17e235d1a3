package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the fixed product classification.
type Category int

const (
	CategoryScience    Category = 1
	CategoryFiction    Category = 2
	CategoryJournalism Category = 3
	CategoryDidactic   Category = 4
)

var categoryNames = map[Category]string{
	CategoryScience:    "Science",
	CategoryFiction:    "Fiction",
	CategoryJournalism: "Journalism",
	CategoryDidactic:   "Didactic",
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Product represents a book in the catalog. SKU and AverageReview are derived.
type Product struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	SKU           string     `json:"sku" db:"sku"`
	Category      Category   `json:"category" db:"category"`
	AverageReview float64    `json:"average_review" db:"average_review"`
	SupplierID    *uuid.UUID `json:"supplier" db:"supplier_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ProductPatch carries the fields of a partial product update. Nil fields are
// left untouched.
type ProductPatch struct {
	Name          *string
	Description   *string
	Category      *Category
	SupplierID    *uuid.UUID
	ClearSupplier bool
	AverageReview *float64
}

// TouchesSKU reports whether applying the patch can change the SKU.
func (p ProductPatch) TouchesSKU() bool {
	return p.Name != nil || p.Category != nil || p.SupplierID != nil || p.ClearSupplier
}

// Apply writes the patch onto product.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.ClearSupplier {
		product.SupplierID = nil
	}
	if p.SupplierID != nil {
		id := *p.SupplierID
		product.SupplierID = &id
	}
	if p.AverageReview != nil {
		product.AverageReview = *p.AverageReview
	}
}

// Supplier provides products.
type Supplier struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Tag labels a product. The name is the identity.
type Tag struct {
	Name      string    `json:"name" db:"name"`
	ProductID uuid.UUID `json:"product" db:"product_id"`
}
