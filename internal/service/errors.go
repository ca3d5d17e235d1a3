package service

import "errors"

var (
	// ErrNotOwner is returned when the caller acts on another customer's data.
	ErrNotOwner = errors.New("caller does not own this resource")
	// ErrForbidden is returned when the caller is known but may not act.
	ErrForbidden = errors.New("operation not permitted")

	ErrProductNotInCart = errors.New("product is not in the cart")
	ErrEmptyCheckout    = errors.New("no products to check out")
	ErrPriceIntegrity   = errors.New("product has more than one active price")
	ErrNoReviews        = errors.New("product has no reviews")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidClient      = errors.New("invalid client credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)
