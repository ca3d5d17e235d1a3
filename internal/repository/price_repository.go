package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrPriceNotFound        = errors.New("price record not found")
	ErrNoActivePrice        = errors.New("product has no active price")
	ErrMultipleActivePrices = errors.New("product has more than one active price")
	ErrActivePriceExists    = errors.New("product already has an active price")
)

const priceColumns = `id, product_id, price, start_at, end_at`

// PriceRepository is the storage side of the pricing ledger. Callers must
// hold the product row lock when closing and opening records.
type PriceRepository interface {
	Create(ctx context.Context, price *domain.PriceHistory) error
	// Close sets the end of an active record.
	Close(ctx context.Context, id uuid.UUID, end time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PriceHistory, error)
	FindActive(ctx context.Context, productID uuid.UUID) (*domain.PriceHistory, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.PriceHistory, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.PriceHistory, int, error)
}

type priceRepository struct {
	db DBTX
}

func NewPriceRepository(db DBTX) PriceRepository {
	return &priceRepository{db: db}
}

func (r *priceRepository) Create(ctx context.Context, price *domain.PriceHistory) error {
	query := `
		INSERT INTO price_history (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	var end sql.NullTime
	if price.End != nil {
		end = sql.NullTime{Time: *price.End, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, price.ID, price.ProductID, price.Price, price.Start, end)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == "uq_price_history_active" {
			return ErrActivePriceExists
		}
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create price record: %w", err)
	}

	return nil
}

func (r *priceRepository) Close(ctx context.Context, id uuid.UUID, end time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE price_history SET end_at = $2 WHERE id = $1 AND end_at IS NULL`,
		id, end,
	)
	if err != nil {
		return fmt.Errorf("failed to close price record: %w", err)
	}

	return checkAffected(result, ErrPriceNotFound)
}

// Delete removes one record. Deleting the active record leaves the product
// without a price until a new one is recorded.
func (r *priceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM price_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete price record: %w", err)
	}

	return checkAffected(result, ErrPriceNotFound)
}

func (r *priceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PriceHistory, error) {
	price, err := scanPrice(r.db.QueryRowContext(ctx, `SELECT `+priceColumns+` FROM price_history WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPriceNotFound
		}
		return nil, fmt.Errorf("failed to find price record: %w", err)
	}
	return price, nil
}

// FindActive returns the open-ended record. It reads up to two rows so a
// broken invariant surfaces as ErrMultipleActivePrices instead of a silent pick.
func (r *priceRepository) FindActive(ctx context.Context, productID uuid.UUID) (*domain.PriceHistory, error) {
	prices, err := r.query(ctx, `
		SELECT `+priceColumns+`
		FROM price_history
		WHERE product_id = $1 AND end_at IS NULL
		LIMIT 2
	`, productID)
	if err != nil {
		return nil, err
	}

	switch len(prices) {
	case 0:
		return nil, ErrNoActivePrice
	case 1:
		return prices[0], nil
	default:
		return nil, ErrMultipleActivePrices
	}
}

func (r *priceRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.PriceHistory, error) {
	return r.query(ctx, `
		SELECT `+priceColumns+`
		FROM price_history
		WHERE product_id = $1
		ORDER BY start_at, end_at NULLS LAST
	`, productID)
}

func (r *priceRepository) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.PriceHistory, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_history WHERE $1::uuid IS NULL OR product_id = $1`,
		nullableUUID(productID),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count price records: %w", err)
	}

	prices, err := r.query(ctx, `
		SELECT `+priceColumns+`
		FROM price_history
		WHERE $1::uuid IS NULL OR product_id = $1
		ORDER BY start_at, end_at NULLS LAST, id
		LIMIT $2 OFFSET $3
	`, nullableUUID(productID), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}

	return prices, total, nil
}

func (r *priceRepository) query(ctx context.Context, query string, args ...any) ([]*domain.PriceHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", err)
	}
	defer rows.Close()

	prices := []*domain.PriceHistory{}
	for rows.Next() {
		price, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		prices = append(prices, price)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price records: %w", err)
	}

	return prices, nil
}

func scanPrice(row rowScanner) (*domain.PriceHistory, error) {
	price := &domain.PriceHistory{}
	var end sql.NullTime
	if err := row.Scan(&price.ID, &price.ProductID, &price.Price, &price.Start, &end); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		price.End = &t
	}
	return price, nil
}
