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
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartAlreadyExists = errors.New("customer already has a cart")
)

// CartRepository stores the one cart per customer and its product set.
type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	// LockByCustomer loads the cart and holds its row lock until the
	// transaction ends, serializing checkouts and additions per customer.
	LockByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	// AddProduct inserts into the set; adding a present product is a no-op.
	AddProduct(ctx context.Context, cartID, productID uuid.UUID) error
	RemoveProducts(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, customer_id, created_at) VALUES ($1, $2, $3)`,
		cart.ID, cart.CustomerID, cart.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCartAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return ErrCustomerNotFound
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	return r.load(ctx, `SELECT id, customer_id, created_at FROM carts WHERE id = $1`, id)
}

func (r *cartRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.load(ctx, `SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1`, customerID)
}

func (r *cartRepository) LockByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.load(ctx, `SELECT id, customer_id, created_at FROM carts WHERE customer_id = $1 FOR UPDATE`, customerID)
}

func (r *cartRepository) load(ctx context.Context, query string, arg uuid.UUID) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&cart.ID, &cart.CustomerID, &cart.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id FROM cart_products WHERE cart_id = $1 ORDER BY added_at, product_id`,
		cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	defer rows.Close()

	cart.ProductIDs = []uuid.UUID{}
	for rows.Next() {
		var productID uuid.UUID
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("failed to scan cart product: %w", err)
		}
		cart.ProductIDs = append(cart.ProductIDs, productID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart products: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) AddProduct(ctx context.Context, cartID, productID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_products (cart_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (cart_id, product_id) DO NOTHING
	`, cartID, productID)
	if err != nil {
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "fk_cart_products_cart" {
				return ErrCartNotFound
			}
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to add product to cart: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveProducts(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_products WHERE cart_id = $1 AND product_id = ANY($2::uuid[])`,
		cartID, uuidStrings(productIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to remove products from cart: %w", err)
	}
	return nil
}
