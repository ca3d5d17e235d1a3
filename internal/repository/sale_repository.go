package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var ErrSaleNotFound = errors.New("sale not found")

const saleColumns = `id, customer_id, total, delivery_address, payment_method, sold_at`

// SaleRepository is append-only: sales are never updated or deleted.
type SaleRepository interface {
	// Create inserts the sale and its items. Run it in the checkout transaction.
	Create(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error)
}

type saleRepository struct {
	db DBTX
}

func NewSaleRepository(db DBTX) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		sale.ID,
		sale.CustomerID,
		sale.Total,
		sale.DeliveryAddress,
		sale.PaymentMethod,
		sale.Date,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to create sale: %w", err)
	}

	for _, item := range sale.Items {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO sale_products (sale_id, product_id, price) VALUES ($1, $2, $3)`,
			sale.ID, item.ProductID, item.Price,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to create sale item: %w", err)
		}
	}

	return nil
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := scanSale(r.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	if err := r.loadItems(ctx, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *saleRepository) List(ctx context.Context, customerID *uuid.UUID, page, pageSize int) ([]*domain.Sale, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales WHERE $1::uuid IS NULL OR customer_id = $1`,
		nullableUUID(customerID),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE $1::uuid IS NULL OR customer_id = $1
		ORDER BY sold_at DESC, id
		LIMIT $2 OFFSET $3
	`, nullableUUID(customerID), pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales: %w", err)
	}

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("error iterating sales: %w", err)
	}
	rows.Close()

	for _, sale := range sales {
		if err := r.loadItems(ctx, sale); err != nil {
			return nil, 0, err
		}
	}

	return sales, total, nil
}

func (r *saleRepository) loadItems(ctx context.Context, sale *domain.Sale) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, price FROM sale_products WHERE sale_id = $1 ORDER BY product_id`,
		sale.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	sale.Items = []domain.SaleItem{}
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.Price); err != nil {
			return fmt.Errorf("failed to scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}

	return rows.Err()
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
		&sale.ID,
		&sale.CustomerID,
		&sale.Total,
		&sale.DeliveryAddress,
		&sale.PaymentMethod,
		&sale.Date,
	)
	if err != nil {
		return nil, err
	}
	return sale, nil
}
