package transport

import (
	"net/http"

	"book-store/internal/access"
	"book-store/internal/middleware"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PriceRequest records a new price for a product.
type PriceRequest struct {
	Product uuid.UUID `json:"product" validate:"required"`
	Price   int64     `json:"price" validate:"required,gt=0"`
}

// PriceHandler exposes the price ledger
type PriceHandler struct {
	prices    service.PricingService
	paginator Paginator
	logger    *zap.Logger
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(prices service.PricingService, paginator Paginator, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, paginator: paginator, logger: logger}
}

// RegisterRoutes registers all price routes
func (h *PriceHandler) RegisterRoutes(r chi.Router, guard Guard) {
	r.Route("/api/prices", func(r chi.Router) {
		r.With(guard(access.ResourcePrice, access.ActionList)).Get("/", h.List)
		r.With(guard(access.ResourcePrice, access.ActionCreate)).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(guard(access.ResourcePrice, access.ActionRetrieve)).Get("/", h.Get)
			r.With(guard(access.ResourcePrice, access.ActionDestroy)).Delete("/", h.Delete)
		})
	})
}

// List supports ?product= to show one product's ledger.
func (h *PriceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.paginator.Parse(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	productID, err := queryID(r, "product")
	if err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "product", Message: "Invalid value"}})
		return
	}

	prices, total, err := h.prices.ListPrices(r.Context(), productID, page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, prices)
}

// Create closes the product's active record and opens a new one.
func (h *PriceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	price, err := h.prices.RecordPrice(r.Context(), req.Product, req.Price)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, price)
}

func (h *PriceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	price, err := h.prices.GetPrice(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, price)
}

func (h *PriceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.prices.DeletePrice(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
