package service

import (
	"context"
	"errors"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewAggregator keeps Product.AverageReview equal to the mean of the
// product's review values.
type ReviewAggregator struct {
	store   repository.Store
	catalog CatalogService
	logger  *zap.Logger
}

func NewReviewAggregator(store repository.Store, catalog CatalogService, logger *zap.Logger) *ReviewAggregator {
	return &ReviewAggregator{store: store, catalog: catalog, logger: logger}
}

// RecomputeAverage writes the current mean through the catalog update path.
// A product without reviews is left untouched and ErrNoReviews is returned.
func (a *ReviewAggregator) RecomputeAverage(ctx context.Context, productID uuid.UUID) (float64, error) {
	stats, err := a.store.Reviews().Stats(ctx, productID)
	if err != nil {
		return 0, err
	}
	if stats.Count == 0 {
		return 0, ErrNoReviews
	}

	average := stats.Average
	if _, err := a.catalog.UpdateProduct(ctx, productID, domain.ProductPatch{AverageReview: &average}); err != nil {
		return 0, err
	}

	a.logger.Debug("Review average updated",
		zap.String("product_id", productID.String()),
		zap.Float64("average", average),
		zap.Int("reviews", stats.Count),
	)
	return average, nil
}

// IsPermanent reports whether a recompute failure will not go away on retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNoReviews) || errors.Is(err, repository.ErrProductNotFound)
}
