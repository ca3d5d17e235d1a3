package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PricingService is the append-only price ledger. Each product has at most one
// open record, and closed records tile time without gaps or overlaps.
type PricingService interface {
	RecordPrice(ctx context.Context, productID uuid.UUID, price int64) (*domain.PriceHistory, error)
	ActivePrice(ctx context.Context, productID uuid.UUID) (*domain.PriceHistory, error)
	ListPrices(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.PriceHistory, int, error)
	GetPrice(ctx context.Context, id uuid.UUID) (*domain.PriceHistory, error)
	// DeletePrice removes a record without repairing the ledger.
	DeletePrice(ctx context.Context, id uuid.UUID) error
}

type pricingService struct {
	store  repository.Store
	now    func() time.Time
	logger *zap.Logger
}

func NewPricingService(store repository.Store, now func() time.Time, logger *zap.Logger) PricingService {
	if now == nil {
		now = time.Now
	}
	return &pricingService{store: store, now: now, logger: logger}
}

func (s *pricingService) RecordPrice(ctx context.Context, productID uuid.UUID, price int64) (*domain.PriceHistory, error) {
	if price <= 0 {
		return nil, domain.NewValidationError("price", "must be greater than zero")
	}

	var record *domain.PriceHistory
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		record, err = appendPrice(ctx, tx, productID, price, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Price recorded",
		zap.String("product_id", productID.String()),
		zap.Int64("price", price),
	)
	return record, nil
}

// appendPrice closes the open record and opens a new one at now. It must run
// inside a transaction.
func appendPrice(ctx context.Context, tx repository.Store, productID uuid.UUID, price int64, now time.Time) (*domain.PriceHistory, error) {
	if _, err := tx.Products().LockByID(ctx, productID); err != nil {
		return nil, err
	}

	active, err := tx.Prices().FindActive(ctx, productID)
	switch {
	case errors.Is(err, repository.ErrNoActivePrice):
	case errors.Is(err, repository.ErrMultipleActivePrices):
		return nil, ErrPriceIntegrity
	case err != nil:
		return nil, fmt.Errorf("failed to find active price: %w", err)
	default:
		if now.Before(active.Start) {
			now = active.Start
		}
		if err := tx.Prices().Close(ctx, active.ID, now); err != nil {
			return nil, fmt.Errorf("failed to close active price: %w", err)
		}
	}

	record := &domain.PriceHistory{
		ID:        uuid.New(),
		ProductID: productID,
		Price:     price,
		Start:     now,
	}
	if err := tx.Prices().Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *pricingService) ActivePrice(ctx context.Context, productID uuid.UUID) (*domain.PriceHistory, error) {
	return activePrice(ctx, s.store, productID)
}

func activePrice(ctx context.Context, store repository.Store, productID uuid.UUID) (*domain.PriceHistory, error) {
	record, err := store.Prices().FindActive(ctx, productID)
	if errors.Is(err, repository.ErrMultipleActivePrices) {
		return nil, ErrPriceIntegrity
	}
	return record, err
}

func (s *pricingService) ListPrices(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.PriceHistory, int, error) {
	return s.store.Prices().List(ctx, productID, page, pageSize)
}

func (s *pricingService) GetPrice(ctx context.Context, id uuid.UUID) (*domain.PriceHistory, error) {
	return s.store.Prices().FindByID(ctx, id)
}

func (s *pricingService) DeletePrice(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Prices().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Price record deleted", zap.String("price_id", id.String()))
	return nil
}
