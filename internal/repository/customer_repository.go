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
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer with this username already exists")
	ErrCustomerInUse         = errors.New("customer is referenced by sales or reviews")
)

const customerColumns = `id, username, email, password_hash, is_staff, is_superuser, date_joined`

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByUsername(ctx context.Context, username string) (*domain.Customer, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error)
}

type customerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db DBTX) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (` + customerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Username,
		customer.Email,
		customer.PasswordHash,
		customer.IsStaff,
		customer.IsSuperuser,
		customer.DateJoined,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCustomerAlreadyExists
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET username = $2, email = $3, password_hash = $4, is_staff = $5, is_superuser = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Username,
		customer.Email,
		customer.PasswordHash,
		customer.IsStaff,
		customer.IsSuperuser,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCustomerAlreadyExists
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return checkAffected(result, ErrCustomerNotFound)
}

// Delete removes the customer; the cart goes with it, sales and reviews block it.
func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCustomerInUse
		}
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	return checkAffected(result, ErrCustomerNotFound)
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *customerRepository) FindByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE username = $1`
	return r.findOne(ctx, query, username)
}

func (r *customerRepository) findOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

func (r *customerRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	query := `
		SELECT ` + customerColumns + `
		FROM customers
		ORDER BY date_joined, username
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, pageSize, offset(page, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	customer := &domain.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.Username,
		&customer.Email,
		&customer.PasswordHash,
		&customer.IsStaff,
		&customer.IsSuperuser,
		&customer.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}
