package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"book-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceRepository_SingleActivePriceIsEnforced(t *testing.T) {
	ctx := context.Background()
	product := seedProduct(t, domain.CategoryScience, nil)
	seedPrice(t, product.ID, 100)

	second := &domain.PriceHistory{ID: uuid.New(), ProductID: product.ID, Price: 200, Start: time.Now().UTC()}
	assert.ErrorIs(t, NewPriceRepository(testDB).Create(ctx, second), ErrActivePriceExists)
}

func TestPriceRepository_FindActive(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceRepository(testDB)
	product := seedProduct(t, domain.CategoryScience, nil)

	_, err := repo.FindActive(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNoActivePrice)

	first := seedPrice(t, product.ID, 100)
	require.NoError(t, repo.Close(ctx, first.ID, time.Now().UTC()))
	second := seedPrice(t, product.ID, 150)

	active, err := repo.FindActive(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, int64(150), active.Price)

	history, err := repo.ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotNil(t, history[0].End)
	assert.Nil(t, history[1].End)

	assert.ErrorIs(t, repo.Close(ctx, first.ID, time.Now()), ErrPriceNotFound)
}

func TestPriceRepository_UnknownProduct(t *testing.T) {
	record := &domain.PriceHistory{ID: uuid.New(), ProductID: uuid.New(), Price: 1, Start: time.Now()}
	assert.ErrorIs(t, NewPriceRepository(testDB).Create(context.Background(), record), ErrProductNotFound)
}

// Feature: book-store, Property 2: Concurrent price changes leave one active price
func TestProperty_ConcurrentOpenRecordsKeepOneActive(t *testing.T) {
	repo := NewPriceRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(&gopter.TestParameters{MinSuccessfulTests: 10, MaxSize: 8, Rng: gopter.DefaultTestParameters().Rng})
	properties.Property("racing inserts of open records leave exactly one", prop.ForAll(
		func(prices []int64) bool {
			product := seedProduct(t, domain.CategoryFiction, nil)

			var wg sync.WaitGroup
			errs := make(chan error, len(prices))
			for _, p := range prices {
				wg.Add(1)
				go func(price int64) {
					defer wg.Done()
					errs <- repo.Create(ctx, &domain.PriceHistory{ID: uuid.New(), ProductID: product.ID, Price: price, Start: time.Now().UTC()})
				}(p)
			}
			wg.Wait()
			close(errs)

			created := 0
			for err := range errs {
				switch {
				case err == nil:
					created++
				case errors.Is(err, ErrActivePriceExists):
				default:
					t.Logf("create price: %v", err)
					return false
				}
			}

			history, err := repo.ListByProduct(ctx, product.ID)
			return err == nil && created == 1 && len(history) == 1 && history[0].End == nil
		},
		gen.SliceOfN(4, gen.Int64Range(1, 100000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
