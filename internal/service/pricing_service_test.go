package service

import (
	"context"
	"testing"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"
	"book-store/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const initialPrice int64 = 1000

func newPricingFixture(t *testing.T, clk *clock) (PricingService, uuid.UUID) {
	t.Helper()
	store := memstore.New()
	catalog := NewCatalogService(store, clk.Now, zap.NewNop())
	product, err := catalog.CreateProduct(context.Background(), NewProduct{Name: "Ledger", Category: domain.CategoryDidactic, Price: initialPrice})
	require.NoError(t, err)
	// The opening record lies strictly before anything the test records.
	clk.t = clk.t.Add(time.Hour)
	return NewPricingService(store, clk.Now, zap.NewNop()), product.ID
}

func TestRecordPriceClosesPreviousRecord(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	pricing, productID := newPricingFixture(t, clk)

	opening, err := pricing.ActivePrice(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, initialPrice, opening.Price)

	first, err := pricing.RecordPrice(ctx, productID, 100)
	require.NoError(t, err)
	clk.t = clk.t.Add(time.Hour)
	second, err := pricing.RecordPrice(ctx, productID, 120)
	require.NoError(t, err)

	active, err := pricing.ActivePrice(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, int64(120), active.Price)

	closed, err := pricing.GetPrice(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.End)
	assert.True(t, closed.End.Equal(second.Start))

	opening, err = pricing.GetPrice(ctx, opening.ID)
	require.NoError(t, err)
	require.NotNil(t, opening.End)
	assert.True(t, opening.End.Equal(first.Start))
}

func TestRecordPriceClampsBackwardsClock(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	pricing, productID := newPricingFixture(t, clk)

	first, err := pricing.RecordPrice(ctx, productID, 100)
	require.NoError(t, err)

	clk.t = clk.t.Add(-time.Minute)
	second, err := pricing.RecordPrice(ctx, productID, 90)
	require.NoError(t, err)
	assert.True(t, second.Start.Equal(first.Start))

	closed, err := pricing.GetPrice(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, closed.End.Equal(first.Start))
}

func TestRecordPriceValidation(t *testing.T) {
	ctx := context.Background()
	pricing, productID := newPricingFixture(t, &clock{t: time.Now()})

	var verr *domain.ValidationError
	_, err := pricing.RecordPrice(ctx, productID, 0)
	assert.ErrorAs(t, err, &verr)
	_, err = pricing.RecordPrice(ctx, productID, -5)
	assert.ErrorAs(t, err, &verr)

	_, err = pricing.RecordPrice(ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestDeletePriceLeavesLedgerAlone(t *testing.T) {
	ctx := context.Background()
	pricing, productID := newPricingFixture(t, &clock{t: time.Now()})

	record, err := pricing.RecordPrice(ctx, productID, 50)
	require.NoError(t, err)
	require.NoError(t, pricing.DeletePrice(ctx, record.ID))

	_, err = pricing.ActivePrice(ctx, productID)
	assert.ErrorIs(t, err, repository.ErrNoActivePrice)
	assert.ErrorIs(t, pricing.DeletePrice(ctx, record.ID), repository.ErrPriceNotFound)
}

// Feature: book-store, Property 2: Price records partition time
func TestProperty_PriceRecordsPartitionTime(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("records are contiguous with exactly one open record", prop.ForAll(
		func(steps []int) bool {
			ctx := context.Background()
			clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			pricing, productID := newPricingFixture(t, clk)

			for i, step := range steps {
				clk.t = clk.t.Add(time.Duration(step) * time.Minute)
				if _, err := pricing.RecordPrice(ctx, productID, int64(100+i)); err != nil {
					return false
				}
			}

			records, total, err := pricing.ListPrices(ctx, &productID, 1, len(steps)+1)
			if err != nil || total != len(steps)+1 {
				return false
			}
			for i, record := range records {
				last := i == len(records)-1
				if last != record.Active() {
					return false
				}
				if !last && !record.End.Equal(records[i+1].Start) {
					return false
				}
				if record.End != nil && record.End.Before(record.Start) {
					return false
				}
			}
			active, err := pricing.ActivePrice(ctx, productID)
			return err == nil && active.Price == int64(100+len(steps)-1)
		},
		gen.SliceOfN(6, gen.IntRange(-5, 30)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
