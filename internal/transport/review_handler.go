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

// ReviewRequest is the payload of review create and full update. Customer
// defaults to the caller when omitted.
type ReviewRequest struct {
	Product  uuid.UUID  `json:"product" validate:"required"`
	Customer *uuid.UUID `json:"customer"`
	Value    *float64   `json:"value" validate:"required"`
}

// ReviewPatchRequest is the payload of a partial review update.
type ReviewPatchRequest struct {
	Product *uuid.UUID `json:"product"`
	Value   *float64   `json:"value"`
}

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	reviews   service.ReviewService
	paginator Paginator
	logger    *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews service.ReviewService, paginator Paginator, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, paginator: paginator, logger: logger}
}

// RegisterRoutes registers all review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router, guard Guard) {
	r.Route("/api/reviews", func(r chi.Router) {
		r.With(guard(access.ResourceReview, access.ActionList)).Get("/", h.List)
		r.With(guard(access.ResourceReview, access.ActionCreate)).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(guard(access.ResourceReview, access.ActionRetrieve)).Get("/", h.Get)
			r.With(guard(access.ResourceReview, access.ActionUpdate)).Put("/", h.Update)
			r.With(guard(access.ResourceReview, access.ActionPartialUpdate)).Patch("/", h.PartialUpdate)
			r.With(guard(access.ResourceReview, access.ActionDestroy)).Delete("/", h.Delete)
		})
	})
}

// List supports ?product= to list one product's reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
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

	reviews, total, err := h.reviews.List(r.Context(), productID, page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, reviews)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	review, err := h.reviews.Create(r.Context(), middleware.GetCaller(r.Context()), service.NewReview{
		ProductID:  req.Product,
		CustomerID: req.Customer,
		Value:      *req.Value,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	review, err := h.reviews.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.update(w, r, id, service.ReviewPatch{ProductID: &req.Product, Value: req.Value})
}

func (h *ReviewHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ReviewPatchRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.update(w, r, id, service.ReviewPatch{ProductID: req.Product, Value: req.Value})
}

func (h *ReviewHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID, patch service.ReviewPatch) {
	review, err := h.reviews.Update(r.Context(), middleware.GetCaller(r.Context()), id, patch)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.reviews.Delete(r.Context(), middleware.GetCaller(r.Context()), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
