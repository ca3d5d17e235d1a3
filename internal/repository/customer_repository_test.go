package repository

import (
	"context"
	"testing"
	"time"

	"book-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Feature: book-store, Property 1: Registration stores hashed passwords
func TestProperty_CustomerPasswordsAreHashed(t *testing.T) {
	repo := NewCustomerRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)
	properties.Property("stored hash verifies and is not the plaintext", prop.ForAll(
		func(suffix, password string) bool {
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
			if err != nil {
				return false
			}

			customer := &domain.Customer{
				ID:           uuid.New(),
				Username:     "p" + suffix + shortID(),
				Email:        "p@example.com",
				PasswordHash: string(hashed),
				DateJoined:   time.Now().UTC(),
			}
			if err := repo.Create(ctx, customer); err != nil {
				t.Logf("create: %v", err)
				return false
			}

			stored, err := repo.FindByUsername(ctx, customer.Username)
			if err != nil {
				return false
			}
			return stored.PasswordHash != password &&
				bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) < 20 }),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) < 40 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCustomerRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(testDB)
	existing := seedCustomer(t)

	dup := &domain.Customer{ID: uuid.New(), Username: existing.Username, PasswordHash: "x", DateJoined: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrCustomerAlreadyExists)
}

func TestCustomerRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository(testDB)
	customer := seedCustomer(t)

	customer.Email = "changed@example.com"
	require.NoError(t, repo.Update(ctx, customer))

	stored, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed@example.com", stored.Email)

	require.NoError(t, repo.Delete(ctx, customer.ID))
	_, err = repo.FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, customer.ID), ErrCustomerNotFound)
}

func TestCustomerRepository_DeleteWithSalesIsRejected(t *testing.T) {
	ctx := context.Background()
	customer := seedCustomer(t)
	product := seedProduct(t, domain.CategoryFiction, nil)

	sale := &domain.Sale{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Items:           []domain.SaleItem{{ProductID: product.ID, Price: 10}},
		Total:           10,
		DeliveryAddress: "Somewhere",
		PaymentMethod:   domain.PaymentPix,
		Date:            time.Now().UTC(),
	}
	require.NoError(t, NewSaleRepository(testDB).Create(ctx, sale))

	assert.ErrorIs(t, NewCustomerRepository(testDB).Delete(ctx, customer.ID), ErrCustomerInUse)
}

func TestStore_WithTxRollsBackCustomerAndCart(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testDB)
	customer := &domain.Customer{ID: uuid.New(), Username: "rb" + shortID(), PasswordHash: "x", DateJoined: time.Now()}

	err := store.WithTx(ctx, func(tx Store) error {
		if err := tx.Customers().Create(ctx, customer); err != nil {
			return err
		}
		// A second cart for the same customer violates the unique constraint.
		if err := tx.Carts().Create(ctx, &domain.Cart{ID: uuid.New(), CustomerID: customer.ID, CreatedAt: time.Now()}); err != nil {
			return err
		}
		return tx.Carts().Create(ctx, &domain.Cart{ID: uuid.New(), CustomerID: customer.ID, CreatedAt: time.Now()})
	})
	require.ErrorIs(t, err, ErrCartAlreadyExists)

	_, err = store.Customers().FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	_, err = store.Carts().FindByCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestStore_NestedWithTxJoins(t *testing.T) {
	ctx := context.Background()
	store := NewStore(testDB)
	customer := &domain.Customer{ID: uuid.New(), Username: "nx" + shortID(), PasswordHash: "x", DateJoined: time.Now()}

	err := store.WithTx(ctx, func(outer Store) error {
		return outer.WithTx(ctx, func(inner Store) error {
			return inner.Customers().Create(ctx, customer)
		})
	})
	require.NoError(t, err)

	_, err = store.Customers().FindByID(ctx, customer.ID)
	assert.NoError(t, err)
}
