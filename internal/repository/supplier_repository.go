package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSupplierNotFound      = errors.New("supplier not found")
	ErrSupplierAlreadyExists = errors.New("supplier with this name or phone already exists")
)

// SupplierRepository defines the interface for supplier data access
type SupplierRepository interface {
	Create(ctx context.Context, supplier *domain.Supplier) error
	Update(ctx context.Context, supplier *domain.Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Supplier, int, error)
}

type supplierRepository struct {
	db DBTX
}

// NewSupplierRepository creates a new instance of SupplierRepository
func NewSupplierRepository(db DBTX) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, address, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, supplier.ID, supplier.Name, supplier.Address, supplier.Phone, supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSupplierAlreadyExists
		}
		return fmt.Errorf("failed to create supplier: %w", err)
	}

	return nil
}

func (r *supplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, address = $3, phone = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, supplier.ID, supplier.Name, supplier.Address, supplier.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSupplierAlreadyExists
		}
		return fmt.Errorf("failed to update supplier: %w", err)
	}

	return checkAffected(result, ErrSupplierNotFound)
}

// Delete removes the supplier; its products keep existing without one.
func (r *supplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	return checkAffected(result, ErrSupplierNotFound)
}

func (r *supplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	query := `
		SELECT id, name, address, phone, created_at
		FROM suppliers
		WHERE id = $1
	`

	supplier := &domain.Supplier{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Address,
		&supplier.Phone,
		&supplier.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to find supplier by ID: %w", err)
	}

	return supplier, nil
}

func (r *supplierRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Supplier, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM suppliers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count suppliers: %w", err)
	}

	query := `
		SELECT id, name, address, phone, created_at
		FROM suppliers
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []*domain.Supplier{}
	for rows.Next() {
		supplier := &domain.Supplier{}
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Address, &supplier.Phone, &supplier.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating suppliers: %w", err)
	}

	return suppliers, total, nil
}
