package transport

import (
	"net/http"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/middleware"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartRequest adds a product to a customer's cart.
type CartRequest struct {
	Customer uuid.UUID `json:"customer" validate:"required"`
	Product  uuid.UUID `json:"product" validate:"required"`
}

// CheckoutRequest buys products from the customer's cart.
type CheckoutRequest struct {
	Customer        uuid.UUID            `json:"customer" validate:"required"`
	Products        []uuid.UUID          `json:"products" validate:"required,min=1"`
	DeliveryAddress string               `json:"delivery_address" validate:"required,max=64"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method" validate:"required,oneof=1 2 3"`
}

// SaleHandler handles carts and checkout
type SaleHandler struct {
	carts     service.CartService
	checkout  service.CheckoutService
	paginator Paginator
	logger    *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(carts service.CartService, checkout service.CheckoutService, paginator Paginator, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{carts: carts, checkout: checkout, paginator: paginator, logger: logger}
}

// RegisterRoutes registers cart and sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router, guard Guard) {
	r.Route("/api/carts", func(r chi.Router) {
		r.With(guard(access.ResourceCart, access.ActionCreate)).Post("/", h.AddToCart)
		r.With(guard(access.ResourceCart, access.ActionRetrieve)).Get("/{id}/", h.GetCart)
	})

	r.Route("/api/sales", func(r chi.Router) {
		r.With(guard(access.ResourceSale, access.ActionList)).Get("/", h.ListSales)
		r.With(guard(access.ResourceSale, access.ActionCreate)).Post("/", h.Checkout)
		r.With(guard(access.ResourceSale, access.ActionRetrieve)).Get("/{id}/", h.GetSale)
	})
}

// AddToCart is idempotent for products already in the cart.
func (h *SaleHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	cart, err := h.carts.AddProduct(r.Context(), middleware.GetCaller(r.Context()), req.Customer, req.Product)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, cart)
}

func (h *SaleHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCartByID(r.Context(), middleware.GetCaller(r.Context()), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cart)
}

// Checkout sells every requested product or none of them. Ownership of the
// cart is checked before the rest of the body is validated.
func (h *SaleHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !readBody(w, r, &req, h.logger) {
		return
	}
	caller := middleware.GetCaller(r.Context())
	if !caller.Is(req.Customer) {
		middleware.RespondWithServiceError(w, service.ErrNotOwner, h.logger)
		return
	}
	if !checkBody(w, r, &req, h.logger) {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), caller, service.CheckoutRequest{
		CustomerID:      req.Customer,
		ProductIDs:      req.Products,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		h.logger.Info("Checkout rejected",
			zap.String("customer_id", req.Customer.String()),
			zap.Error(err),
		)
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// ListSales shows staff every sale and customers their own.
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.paginator.Parse(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	sales, total, err := h.checkout.ListSales(r.Context(), middleware.GetCaller(r.Context()), page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, sales)
}

func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	sale, err := h.checkout.GetSale(r.Context(), middleware.GetCaller(r.Context()), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}
