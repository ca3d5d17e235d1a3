package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutRequest is a customer's purchase of products from their cart.
type CheckoutRequest struct {
	CustomerID      uuid.UUID
	ProductIDs      []uuid.UUID
	DeliveryAddress string
	PaymentMethod   domain.PaymentMethod
}

type CheckoutResult struct {
	SaleID uuid.UUID `json:"id"`
	Total  int64     `json:"total"`
}

// CheckoutService turns cart contents into sales.
type CheckoutService interface {
	// Checkout runs as one transaction: either every requested product is
	// sold and removed from the cart, or nothing changes.
	Checkout(ctx context.Context, caller access.Caller, req CheckoutRequest) (*CheckoutResult, error)
	ListSales(ctx context.Context, caller access.Caller, page, pageSize int) ([]*domain.Sale, int, error)
	GetSale(ctx context.Context, caller access.Caller, id uuid.UUID) (*domain.Sale, error)
}

type checkoutService struct {
	store   repository.Store
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewCheckoutService(store repository.Store, timeout time.Duration, now func() time.Time, logger *zap.Logger) CheckoutService {
	if now == nil {
		now = time.Now
	}
	return &checkoutService{store: store, timeout: timeout, now: now, logger: logger}
}

func (s *checkoutService) Checkout(ctx context.Context, caller access.Caller, req CheckoutRequest) (*CheckoutResult, error) {
	if !caller.Is(req.CustomerID) {
		return nil, ErrNotOwner
	}

	productIDs := dedupe(req.ProductIDs)
	if len(productIDs) == 0 {
		return nil, ErrEmptyCheckout
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return nil, domain.NewValidationError("delivery_address", "must not be blank")
	}
	if len(req.DeliveryAddress) > 64 {
		return nil, domain.NewValidationError("delivery_address", "must be at most 64 characters")
	}
	if !req.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("payment_method", "must be one of 1 (Pix), 2 (Credit), 3 (Debit)")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With(zap.String("customer_id", req.CustomerID.String()))
	sale := &domain.Sale{
		ID:              uuid.New(),
		CustomerID:      req.CustomerID,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Date:            s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		transition(logger, domain.CheckoutValidating)
		cart, err := tx.Carts().LockByCustomer(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		for _, id := range productIDs {
			if !cart.Contains(id) {
				logger.Info("Product not in cart", zap.String("product_id", id.String()))
				return ErrProductNotInCart
			}
		}

		transition(logger, domain.CheckoutPricing)
		for _, id := range productIDs {
			price, err := activePrice(ctx, tx, id)
			if err != nil {
				return err
			}
			sale.Items = append(sale.Items, domain.SaleItem{ProductID: id, Price: price.Price})
			sale.Total += price.Price
		}

		transition(logger, domain.CheckoutCommitting)
		if err := tx.Carts().RemoveProducts(ctx, cart.ID, productIDs); err != nil {
			return err
		}
		if err := tx.Sales().Create(ctx, sale); err != nil {
			return err
		}
		event := domain.SaleCompleted{
			SaleID:        sale.ID,
			CustomerID:    sale.CustomerID,
			Items:         sale.Items,
			Total:         sale.Total,
			PaymentMethod: sale.PaymentMethod,
			Date:          sale.Date,
		}
		return tx.Outbox().Insert(ctx, uuid.New(), domain.TopicSaleCompleted, sale.ID.String(), event)
	})
	if err != nil {
		logger.Info("Checkout state changed",
			zap.Stringer("state", domain.CheckoutAborted),
			zap.Error(err),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("checkout timed out: %w", err)
		}
		return nil, err
	}

	logger.Info("Checkout state changed",
		zap.Stringer("state", domain.CheckoutCompleted),
		zap.String("sale_id", sale.ID.String()),
		zap.Int64("total", sale.Total),
	)
	return &CheckoutResult{SaleID: sale.ID, Total: sale.Total}, nil
}

func transition(logger *zap.Logger, state domain.CheckoutState) {
	logger.Debug("Checkout state changed", zap.Stringer("state", state))
}

// ListSales returns the caller's sales; staff see every sale.
func (s *checkoutService) ListSales(ctx context.Context, caller access.Caller, page, pageSize int) ([]*domain.Sale, int, error) {
	if !caller.Authenticated {
		return nil, 0, ErrForbidden
	}
	var customerID *uuid.UUID
	if !caller.IsStaff() {
		id := caller.CustomerID
		customerID = &id
	}
	return s.store.Sales().List(ctx, customerID, page, pageSize)
}

func (s *checkoutService) GetSale(ctx context.Context, caller access.Caller, id uuid.UUID) (*domain.Sale, error) {
	sale, err := s.store.Sales().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !caller.Is(sale.CustomerID) {
		// Other customers' sales are indistinguishable from missing ones.
		return nil, repository.ErrSaleNotFound
	}
	return sale, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
