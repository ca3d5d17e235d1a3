package transport

import (
	"net/http"
	"time"

	"book-store/internal/access"
	"book-store/internal/cache"
	"book-store/internal/domain"
	"book-store/internal/middleware"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CustomerRequest is the payload of customer create and full update.
type CustomerRequest struct {
	Username string `json:"username" validate:"required,nospace,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,nospace,max=72"`
}

// CustomerPatchRequest is the payload of a partial customer update.
type CustomerPatchRequest struct {
	Username *string `json:"username" validate:"omitempty,nospace,max=150"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,nospace,max=72"`
}

// CustomerHandler handles HTTP requests for customer accounts
type CustomerHandler struct {
	customers service.CustomerService
	paginator Paginator
	logger    *zap.Logger

	cache       cache.Cache
	listTTL     time.Duration
	retrieveTTL time.Duration
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers service.CustomerService, paginator Paginator, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{customers: customers, paginator: paginator, logger: logger}
}

// WithCache serves list and retrieve responses from c. Retrieve responses vary
// on the Authorization header.
func (h *CustomerHandler) WithCache(c cache.Cache, listTTL, retrieveTTL time.Duration) *CustomerHandler {
	h.cache = c
	h.listTTL = listTTL
	h.retrieveTTL = retrieveTTL
	return h
}

func (h *CustomerHandler) cached(opts cache.Options) func(http.Handler) http.Handler {
	if h.cache == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return cache.Middleware(h.cache, opts, h.logger)
}

// RegisterRoutes registers all customer routes
func (h *CustomerHandler) RegisterRoutes(r chi.Router, guard Guard) {
	listCache := h.cached(cache.Options{Operation: cache.OperationList, TTL: h.listTTL})
	retrieveCache := h.cached(cache.Options{
		Operation: cache.OperationRetrieve,
		TTL:       h.retrieveTTL,
		Vary:      []string{"Authorization"},
	})

	r.Route("/api/customers", func(r chi.Router) {
		r.With(guard(access.ResourceCustomer, access.ActionList), listCache).Get("/", h.List)
		r.With(guard(access.ResourceCustomer, access.ActionCreate)).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(guard(access.ResourceCustomer, access.ActionRetrieve), retrieveCache).Get("/", h.Get)
			r.With(guard(access.ResourceCustomer, access.ActionUpdate)).Put("/", h.Update)
			r.With(guard(access.ResourceCustomer, access.ActionPartialUpdate)).Patch("/", h.PartialUpdate)
			r.With(guard(access.ResourceCustomer, access.ActionDestroy)).Delete("/", h.Delete)
		})
	})
}

// List handles the paginated customer listing
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.paginator.Parse(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	customers, total, err := h.customers.List(r.Context(), page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, customers)
}

// Create handles customer registration
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	customer, err := h.customers.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Registration failed", zap.Error(err))
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, customer)
}

// Get handles customer retrieval
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// Update handles a full account update
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CustomerRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.update(w, r, id, domain.CustomerPatch{
		Username: &req.Username,
		Email:    &req.Email,
		Password: &req.Password,
	})
}

// PartialUpdate handles a partial account update
func (h *CustomerHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CustomerPatchRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.update(w, r, id, domain.CustomerPatch{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
}

func (h *CustomerHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID, patch domain.CustomerPatch) {
	customer, err := h.customers.Update(r.Context(), middleware.GetCaller(r.Context()), id, patch)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, customer)
}

// Delete handles account deletion
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.customers.Delete(r.Context(), middleware.GetCaller(r.Context()), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
