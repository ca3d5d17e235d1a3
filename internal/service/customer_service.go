package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerService manages customer accounts and their carts.
type CustomerService interface {
	Register(ctx context.Context, username, email, password string) (*domain.Customer, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	// Update replaces username, email and password; only the account owner may call it.
	Update(ctx context.Context, caller access.Caller, id uuid.UUID, patch domain.CustomerPatch) (*domain.Customer, error)
	Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error
	CreateSuperCustomer(ctx context.Context, username, password string) (*domain.Customer, error)
}

var validate = validator.New()

type customerService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCustomerService(store repository.Store, logger *zap.Logger) CustomerService {
	return &customerService{store: store, logger: logger}
}

// Register creates the customer and their cart in one transaction.
func (s *customerService) Register(ctx context.Context, username, email, password string) (*domain.Customer, error) {
	customer, err := s.newCustomer(username, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.create(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer registered",
		zap.String("customer_id", customer.ID.String()),
		zap.String("username", customer.Username),
	)
	return customer, nil
}

// CreateSuperCustomer creates a staff superuser with a generated email.
func (s *customerService) CreateSuperCustomer(ctx context.Context, username, password string) (*domain.Customer, error) {
	customer, err := s.newCustomer(username, username+"@"+username+".dev", password)
	if err != nil {
		return nil, err
	}
	customer.IsStaff = true
	customer.IsSuperuser = true

	if err := s.create(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Super customer created", zap.String("username", customer.Username))
	return customer, nil
}

func (s *customerService) newCustomer(username, email, password string) (*domain.Customer, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &domain.Customer{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DateJoined:   time.Now().UTC(),
	}, nil
}

func (s *customerService) create(ctx context.Context, customer *domain.Customer) error {
	return s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Customers().Create(ctx, customer); err != nil {
			return err
		}
		cart := &domain.Cart{ID: uuid.New(), CustomerID: customer.ID, CreatedAt: customer.DateJoined}
		if err := tx.Carts().Create(ctx, cart); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	})
}

func (s *customerService) List(ctx context.Context, page, pageSize int) ([]*domain.Customer, int, error) {
	return s.store.Customers().List(ctx, page, pageSize)
}

func (s *customerService) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.store.Customers().FindByID(ctx, id)
}

func (s *customerService) Update(ctx context.Context, caller access.Caller, id uuid.UUID, patch domain.CustomerPatch) (*domain.Customer, error) {
	if !caller.Is(id) {
		return nil, ErrNotOwner
	}

	customer, err := s.store.Customers().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		if err := validateUsername(*patch.Username); err != nil {
			return nil, err
		}
		customer.Username = *patch.Username
	}
	if patch.Email != nil {
		if err := validateEmail(*patch.Email); err != nil {
			return nil, err
		}
		customer.Email = *patch.Email
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		customer.PasswordHash = hash
	}

	if err := s.store.Customers().Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// Delete removes the caller's own account; the cart goes with it.
func (s *customerService) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	if !caller.Is(id) {
		return ErrNotOwner
	}
	if err := s.store.Customers().Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Customer deleted", zap.String("customer_id", id.String()))
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return domain.NewValidationError("username", "must not be blank")
	}
	if len(username) > 150 {
		return domain.NewValidationError("username", "must be at most 150 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.NewValidationError("username", "must not contain whitespace")
	}
	return nil
}

// bcrypt refuses longer inputs.
const maxPasswordBytes = 72

func validatePassword(password string) error {
	if password == "" {
		return domain.NewValidationError("password", "must not be blank")
	}
	if strings.ContainsAny(password, " \t\r\n") {
		return domain.NewValidationError("password", "must not contain whitespace")
	}
	if len(password) > maxPasswordBytes {
		return domain.NewValidationError("password", "must be at most 72 bytes")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if err := validate.Var(email, "email"); err != nil {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	return nil
}
