package repository

import (
	"context"
	"testing"

	"book-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Feature: book-store, Property 3: Product creation preserves attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)
	supplier := seedSupplier(t)

	properties := gopter.NewProperties(nil)
	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name, description string, category int) bool {
			ctx := context.Background()
			product := seedProduct(t, domain.Category(category), &supplier.ID)
			product.Name = name
			product.Description = description
			if err := repo.Update(ctx, product); err != nil {
				t.Logf("update: %v", err)
				return false
			}

			stored, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				return false
			}
			return stored.Name == name &&
				stored.Description == description &&
				stored.Category == domain.Category(category) &&
				stored.SupplierID != nil && *stored.SupplierID == supplier.ID
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) <= 32 }),
		gen.AlphaString(),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_SupplierDeleteClearsReference(t *testing.T) {
	ctx := context.Background()
	supplier := seedSupplier(t)
	product := seedProduct(t, domain.CategoryDidactic, &supplier.ID)

	require.NoError(t, NewSupplierRepository(testDB).Delete(ctx, supplier.ID))

	stored, err := NewProductRepository(testDB).FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SupplierID)
}

func TestProductRepository_InvalidSupplier(t *testing.T) {
	missing := uuid.New()
	product := &domain.Product{ID: uuid.New(), Name: "x", Category: domain.CategoryFiction, SupplierID: &missing}
	assert.ErrorIs(t, NewProductRepository(testDB).Create(context.Background(), product), ErrInvalidSupplier)
}

func TestProductRepository_ListFiltersAndRelated(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testDB)
	supplier := seedSupplier(t)
	a := seedProduct(t, domain.CategoryJournalism, &supplier.ID)
	b := seedProduct(t, domain.CategoryJournalism, &supplier.ID)

	products, total, err := repo.List(ctx, ProductFilter{SupplierID: &supplier.ID}, 1, 10, "name", SortOrderAsc)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 2)

	related, err := repo.ListRelated(ctx, domain.CategoryJournalism, a.ID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(related))
	for _, p := range related {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, b.ID)
	assert.NotContains(t, ids, a.ID)
}

func TestTagRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTagRepository(testDB)
	product := seedProduct(t, domain.CategoryFiction, nil)
	name := "t" + shortID()

	require.NoError(t, repo.Create(ctx, &domain.Tag{Name: name, ProductID: product.ID}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Tag{Name: name, ProductID: product.ID}), ErrTagAlreadyExists)
	assert.ErrorIs(t, repo.Create(ctx, &domain.Tag{Name: "t" + shortID(), ProductID: uuid.New()}), ErrProductNotFound)

	tags, total, err := repo.List(ctx, &product.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, name, tags[0].Name)

	require.NoError(t, repo.Delete(ctx, name))
	_, err = repo.FindByName(ctx, name)
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestReviewRepository_Stats(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewRepository(testDB)
	product := seedProduct(t, domain.CategoryScience, nil)
	customer := seedCustomer(t)

	stats, err := repo.Stats(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)

	for _, v := range []float64{4, 5} {
		require.NoError(t, repo.Create(ctx, &domain.Review{ID: uuid.New(), ProductID: product.ID, CustomerID: customer.ID, Value: v}))
	}

	stats, err = repo.Stats(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 4.5, stats.Average, 1e-9)

	bad := &domain.Review{ID: uuid.New(), ProductID: product.ID, CustomerID: uuid.New(), Value: 1}
	assert.ErrorIs(t, repo.Create(ctx, bad), ErrInvalidCustomer)
}
