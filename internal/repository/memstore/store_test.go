package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxRestoresStateOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	customer := &domain.Customer{ID: uuid.New(), Username: "ana", DateJoined: time.Now()}
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Customers().Create(ctx, customer))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Customers().FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)
}

func TestFailNextIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")
	store.FailNext("customers.List", boom)

	_, _, err := store.Customers().List(ctx, 1, 10)
	assert.ErrorIs(t, err, boom)

	_, _, err = store.Customers().List(ctx, 1, 10)
	assert.NoError(t, err)
}

func TestSingleActivePrice(t *testing.T) {
	ctx := context.Background()
	store := New()
	product := &domain.Product{ID: uuid.New(), Name: "Book", Category: domain.CategoryFiction}
	require.NoError(t, store.Products().Create(ctx, product))

	first := &domain.PriceHistory{ID: uuid.New(), ProductID: product.ID, Price: 10, Start: time.Now()}
	require.NoError(t, store.Prices().Create(ctx, first))

	second := &domain.PriceHistory{ID: uuid.New(), ProductID: product.ID, Price: 20, Start: time.Now()}
	assert.ErrorIs(t, store.Prices().Create(ctx, second), repository.ErrActivePriceExists)

	require.NoError(t, store.Prices().Close(ctx, first.ID, time.Now()))
	require.NoError(t, store.Prices().Create(ctx, second))

	active, err := store.Prices().FindActive(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestProductDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := New()
	customer := &domain.Customer{ID: uuid.New(), Username: "bo"}
	product := &domain.Product{ID: uuid.New(), Name: "Book", Category: domain.CategoryFiction}
	cart := &domain.Cart{ID: uuid.New(), CustomerID: customer.ID}
	require.NoError(t, store.Customers().Create(ctx, customer))
	require.NoError(t, store.Products().Create(ctx, product))
	require.NoError(t, store.Carts().Create(ctx, cart))
	require.NoError(t, store.Carts().AddProduct(ctx, cart.ID, product.ID))
	require.NoError(t, store.Tags().Create(ctx, &domain.Tag{Name: "classic", ProductID: product.ID}))

	require.NoError(t, store.Products().Delete(ctx, product.ID))

	stored, err := store.Carts().FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ProductIDs)
	_, err = store.Tags().FindByName(ctx, "classic")
	assert.ErrorIs(t, err, repository.ErrTagNotFound)
}
