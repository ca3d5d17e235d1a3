package service

import (
	"context"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
)

// CartService manages the per-customer product set. Carts are created with
// their customer and are never deleted on their own.
type CartService interface {
	AddProduct(ctx context.Context, caller access.Caller, customerID, productID uuid.UUID) (*domain.Cart, error)
	GetCart(ctx context.Context, caller access.Caller, customerID uuid.UUID) (*domain.Cart, error)
	GetCartByID(ctx context.Context, caller access.Caller, cartID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	store repository.Store
}

func NewCartService(store repository.Store) CartService {
	return &cartService{store: store}
}

// AddProduct is idempotent: adding a product already in the cart changes nothing.
func (s *cartService) AddProduct(ctx context.Context, caller access.Caller, customerID, productID uuid.UUID) (*domain.Cart, error) {
	if !caller.Is(customerID) {
		return nil, ErrNotOwner
	}

	var cart *domain.Cart
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		locked, err := tx.Carts().LockByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if err := tx.Carts().AddProduct(ctx, locked.ID, productID); err != nil {
			return err
		}
		cart, err = tx.Carts().FindByID(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, caller access.Caller, customerID uuid.UUID) (*domain.Cart, error) {
	if !caller.IsStaff() && !caller.Is(customerID) {
		return nil, ErrNotOwner
	}
	return s.store.Carts().FindByCustomer(ctx, customerID)
}

func (s *cartService) GetCartByID(ctx context.Context, caller access.Caller, cartID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.store.Carts().FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !caller.Is(cart.CustomerID) {
		return nil, ErrNotOwner
	}
	return cart, nil
}
