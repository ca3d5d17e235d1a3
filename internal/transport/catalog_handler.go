package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/middleware"
	"book-store/internal/repository"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductCreateRequest is the payload of product create. Price opens the
// product's first ledger record.
type ProductCreateRequest struct {
	Name        string          `json:"name" validate:"required,max=32"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category" validate:"required,oneof=1 2 3 4"`
	Supplier    *uuid.UUID      `json:"supplier"`
	Price       int64           `json:"price" validate:"required,gt=0"`
}

// ProductRequest is the payload of a full product update. Prices change
// through the price ledger only.
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=32"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category" validate:"required,oneof=1 2 3 4"`
	Supplier    *uuid.UUID      `json:"supplier"`
}

// ProductPatchRequest is the payload of a partial product update. Supplier
// keeps its raw form so an explicit null can be told apart from absence.
type ProductPatchRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=32"`
	Description *string          `json:"description"`
	Category    *domain.Category `json:"category" validate:"omitempty,oneof=1 2 3 4"`
	Supplier    json.RawMessage  `json:"supplier"`
}

// RelatedProductsResponse lists the products sharing a category.
type RelatedProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

// SupplierRequest is the payload of supplier create and full update.
type SupplierRequest struct {
	Name    string `json:"name" validate:"required,max=32"`
	Address string `json:"address" validate:"max=64"`
	Phone   string `json:"phone" validate:"required,max=11"`
}

// SupplierPatchRequest is the payload of a partial supplier update.
type SupplierPatchRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=64"`
	Phone   *string `json:"phone" validate:"omitempty,max=11"`
}

// TagRequest is the payload of tag creation.
type TagRequest struct {
	Name    string    `json:"name" validate:"required,max=16"`
	Product uuid.UUID `json:"product" validate:"required"`
}

// CatalogHandler handles HTTP requests for products, suppliers and tags
type CatalogHandler struct {
	catalog   service.CatalogService
	paginator Paginator
	logger    *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, paginator Paginator, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, paginator: paginator, logger: logger}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, guard Guard) {
	r.Route("/api/products", func(r chi.Router) {
		r.With(guard(access.ResourceProduct, access.ActionList)).Get("/", h.ListProducts)
		r.With(guard(access.ResourceProduct, access.ActionCreate)).Post("/", h.CreateProduct)
		r.With(guard(access.ResourceProduct, access.ActionRetrieve)).Get("/categories/{id}/", h.RelatedProducts)

		r.Route("/{id}", func(r chi.Router) {
			r.With(guard(access.ResourceProduct, access.ActionRetrieve)).Get("/", h.GetProduct)
			r.With(guard(access.ResourceProduct, access.ActionUpdate)).Put("/", h.UpdateProduct)
			r.With(guard(access.ResourceProduct, access.ActionPartialUpdate)).Patch("/", h.PartialUpdateProduct)
			r.With(guard(access.ResourceProduct, access.ActionDestroy)).Delete("/", h.DeleteProduct)
		})
	})

	r.Route("/api/suppliers", func(r chi.Router) {
		r.With(guard(access.ResourceSupplier, access.ActionList)).Get("/", h.ListSuppliers)
		r.With(guard(access.ResourceSupplier, access.ActionCreate)).Post("/", h.CreateSupplier)

		r.Route("/{id}", func(r chi.Router) {
			r.With(guard(access.ResourceSupplier, access.ActionRetrieve)).Get("/", h.GetSupplier)
			r.With(guard(access.ResourceSupplier, access.ActionUpdate)).Put("/", h.UpdateSupplier)
			r.With(guard(access.ResourceSupplier, access.ActionPartialUpdate)).Patch("/", h.PartialUpdateSupplier)
			r.With(guard(access.ResourceSupplier, access.ActionDestroy)).Delete("/", h.DeleteSupplier)
		})
	})

	r.Route("/api/tags", func(r chi.Router) {
		r.With(guard(access.ResourceTag, access.ActionList)).Get("/", h.ListTags)
		r.With(guard(access.ResourceTag, access.ActionCreate)).Post("/", h.CreateTag)

		r.Route("/{name}", func(r chi.Router) {
			r.With(guard(access.ResourceTag, access.ActionRetrieve)).Get("/", h.GetTag)
			r.With(guard(access.ResourceTag, access.ActionDestroy)).Delete("/", h.DeleteTag)
		})
	})
}

// ListProducts supports ?category=, ?supplier=, ?search= and ?ordering=
// where a leading "-" sorts descending.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.paginator.Parse(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	query := service.ProductQuery{Page: page, PageSize: size}
	if raw := r.URL.Query().Get("category"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.Category(n).Valid() {
			middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "category", Message: "Invalid value"}})
			return
		}
		category := domain.Category(n)
		query.Filter.Category = &category
	}
	if query.Filter.SupplierID, err = queryID(r, "supplier"); err != nil {
		middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "supplier", Message: "Invalid value"}})
		return
	}
	query.Filter.Search = r.URL.Query().Get("search")

	query.SortBy, query.SortOrder = "created_at", repository.SortOrderDesc
	if ordering := r.URL.Query().Get("ordering"); ordering != "" {
		query.SortBy, query.SortOrder = strings.TrimPrefix(ordering, "-"), repository.SortOrderAsc
		if strings.HasPrefix(ordering, "-") {
			query.SortOrder = repository.SortOrderDesc
		}
	}

	products, total, err := h.catalog.ListProducts(r.Context(), query)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, products)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductCreateRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), service.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		SupplierID:  req.Supplier,
		Price:       req.Price,
	})
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// RelatedProducts lists the other products in the category of product {id}.
func (h *CatalogHandler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	products, err := h.catalog.RelatedProducts(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RelatedProductsResponse{Products: products})
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.updateProduct(w, r, id, domain.ProductPatch{
		Name:          &req.Name,
		Description:   &req.Description,
		Category:      &req.Category,
		SupplierID:    req.Supplier,
		ClearSupplier: req.Supplier == nil,
	})
}

func (h *CatalogHandler) PartialUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ProductPatchRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	if len(req.Supplier) > 0 {
		if bytes.Equal(req.Supplier, []byte("null")) {
			patch.ClearSupplier = true
		} else {
			var supplierID uuid.UUID
			if err := json.Unmarshal(req.Supplier, &supplierID); err != nil {
				middleware.RespondWithValidationErrors(w, []middleware.ValidationError{{Field: "supplier", Message: "Invalid value"}})
				return
			}
			patch.SupplierID = &supplierID
		}
	}

	h.updateProduct(w, r, id, patch)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request, id uuid.UUID, patch domain.ProductPatch) {
	product, err := h.catalog.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	page, size, err := h.paginator.Parse(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	suppliers, total, err := h.catalog.ListSuppliers(r.Context(), page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, suppliers)
}

func (h *CatalogHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	supplier, err := h.catalog.CreateSupplier(r.Context(), req.Name, req.Address, req.Phone)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, supplier)
}

func (h *CatalogHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	supplier, err := h.catalog.GetSupplier(r.Context(), id)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, supplier)
}

func (h *CatalogHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SupplierRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.updateSupplier(w, r, id, service.SupplierPatch{Name: &req.Name, Address: &req.Address, Phone: &req.Phone})
}

func (h *CatalogHandler) PartialUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req SupplierPatchRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	h.updateSupplier(w, r, id, service.SupplierPatch{Name: req.Name, Address: req.Address, Phone: req.Phone})
}

func (h *CatalogHandler) updateSupplier(w http.ResponseWriter, r *http.Request, id uuid.UUID, patch service.SupplierPatch) {
	supplier, err := h.catalog.UpdateSupplier(r.Context(), id, patch)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, supplier)
}

func (h *CatalogHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteSupplier(r.Context(), id); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTags supports ?product= to list one product's tags.
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
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

	tags, total, err := h.catalog.ListTags(r.Context(), productID, page, size)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	respondPage(w, r, h.paginator, page, size, total, tags)
}

func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	tag, err := h.catalog.CreateTag(r.Context(), req.Name, req.Product)
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, tag)
}

func (h *CatalogHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.catalog.GetTag(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, tag)
}

func (h *CatalogHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteTag(r.Context(), chi.URLParam(r, "name")); err != nil {
		middleware.RespondWithServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
