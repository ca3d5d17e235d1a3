package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"book-store/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidSupplier = errors.New("referenced supplier does not exist")
)

const productColumns = `id, name, description, sku, category, average_review, supplier_id, created_at, updated_at`

// ProductFilter narrows a product listing. Zero values match everything.
type ProductFilter struct {
	Category   *domain.Category
	SupplierID *uuid.UUID
	Search     string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// LockByID loads the product and holds a row lock until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	ListRelated(ctx context.Context, category domain.Category, excludeID uuid.UUID) ([]*domain.Product, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]*domain.Product, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.SKU,
		product.Category,
		product.AverageReview,
		nullableUUID(product.SupplierID),
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidSupplier
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, sku = $4, category = $5,
		    average_review = $6, supplier_id = $7
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.SKU,
		product.Category,
		product.AverageReview,
		nullableUUID(product.SupplierID),
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrInvalidSupplier
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product together with its tags, prices and reviews.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return checkAffected(result, ErrProductNotFound)
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *productRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id)
}

func (r *productRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*domain.Product, error) {
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// List retrieves products with optional filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	// Sort columns are interpolated, so only whitelisted names get through.
	validSortFields := map[string]bool{
		"name":           true,
		"category":       true,
		"average_review": true,
		"created_at":     true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	var conditions []string
	args := []interface{}{}
	argIndex := 1

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.SupplierID != nil {
		conditions = append(conditions, fmt.Sprintf("supplier_id = $%d", argIndex))
		args = append(args, *filter.SupplierID)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset(page, pageSize))

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListRelated returns the other products of the same category.
func (r *productRepository) ListRelated(ctx context.Context, category domain.Category, excludeID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND id <> $2
		ORDER BY name
	`
	return r.query(ctx, query, category, excludeID)
}

func (r *productRepository) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE supplier_id = $1
		ORDER BY id
		FOR UPDATE
	`
	return r.query(ctx, query, supplierID)
}

func (r *productRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var supplierID uuid.NullUUID
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.SKU,
		&product.Category,
		&product.AverageReview,
		&supplierID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.SupplierID = uuidPtr(supplierID)
	return product, nil
}
