package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewProduct is the input of CatalogService.CreateProduct. Price is required
// and opens the product's first ledger record in the same transaction.
type NewProduct struct {
	Name        string
	Description string
	Category    domain.Category
	SupplierID  *uuid.UUID
	Price       int64
}

// SupplierPatch carries a partial supplier update.
type SupplierPatch struct {
	Name    *string
	Address *string
	Phone   *string
}

// ProductQuery selects a page of products.
type ProductQuery struct {
	Filter    repository.ProductFilter
	Page      int
	PageSize  int
	SortBy    string
	SortOrder repository.SortOrder
}

// CatalogService manages suppliers, products and tags. Product SKUs are
// derived here and kept in step with names, categories and suppliers.
type CatalogService interface {
	CreateSupplier(ctx context.Context, name, address, phone string) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, id uuid.UUID, patch SupplierPatch) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id uuid.UUID) error
	GetSupplier(ctx context.Context, id uuid.UUID) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, page, pageSize int) ([]*domain.Supplier, int, error)

	CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, query ProductQuery) ([]*domain.Product, int, error)
	RelatedProducts(ctx context.Context, productID uuid.UUID) ([]*domain.Product, error)

	CreateTag(ctx context.Context, name string, productID uuid.UUID) (*domain.Tag, error)
	DeleteTag(ctx context.Context, name string) error
	GetTag(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Tag, int, error)
}

type catalogService struct {
	store  repository.Store
	now    func() time.Time
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, now func() time.Time, logger *zap.Logger) CatalogService {
	if now == nil {
		now = time.Now
	}
	return &catalogService{store: store, now: now, logger: logger}
}

func (s *catalogService) CreateSupplier(ctx context.Context, name, address, phone string) (*domain.Supplier, error) {
	supplier := &domain.Supplier{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		Phone:     phone,
		CreatedAt: s.now().UTC(),
	}
	if err := validateSupplier(supplier); err != nil {
		return nil, err
	}
	if err := s.store.Suppliers().Create(ctx, supplier); err != nil {
		return nil, err
	}

	s.logger.Info("Supplier created", zap.String("supplier_id", supplier.ID.String()))
	return supplier, nil
}

// UpdateSupplier applies the patch; a rename regenerates the SKU of every
// product the supplier provides in the same transaction.
func (s *catalogService) UpdateSupplier(ctx context.Context, id uuid.UUID, patch SupplierPatch) (*domain.Supplier, error) {
	var supplier *domain.Supplier
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		supplier, err = tx.Suppliers().FindByID(ctx, id)
		if err != nil {
			return err
		}

		renamed := patch.Name != nil && *patch.Name != supplier.Name
		if patch.Name != nil {
			supplier.Name = *patch.Name
		}
		if patch.Address != nil {
			supplier.Address = *patch.Address
		}
		if patch.Phone != nil {
			supplier.Phone = *patch.Phone
		}
		if err := validateSupplier(supplier); err != nil {
			return err
		}
		if err := tx.Suppliers().Update(ctx, supplier); err != nil {
			return err
		}
		if !renamed {
			return nil
		}

		products, err := tx.Products().ListBySupplier(ctx, supplier.ID)
		if err != nil {
			return err
		}
		for _, product := range products {
			product.SKU = domain.GenerateSKU(supplier.Name, product.Name, product.Category)
			if err := tx.Products().Update(ctx, product); err != nil {
				return fmt.Errorf("failed to regenerate sku: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *catalogService) DeleteSupplier(ctx context.Context, id uuid.UUID) error {
	// Products keep existing without a supplier; their SKUs are left as they were.
	return s.store.Suppliers().Delete(ctx, id)
}

func (s *catalogService) GetSupplier(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	return s.store.Suppliers().FindByID(ctx, id)
}

func (s *catalogService) ListSuppliers(ctx context.Context, page, pageSize int) ([]*domain.Supplier, int, error) {
	return s.store.Suppliers().List(ctx, page, pageSize)
}

func (s *catalogService) CreateProduct(ctx context.Context, input NewProduct) (*domain.Product, error) {
	now := s.now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		SupplierID:  input.SupplierID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if input.Price <= 0 {
		return nil, domain.NewValidationError("price", "must be greater than zero")
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		sku, err := s.sku(ctx, tx, product)
		if err != nil {
			return err
		}
		product.SKU = sku

		if err := tx.Products().Create(ctx, product); err != nil {
			return err
		}
		_, err = appendPrice(ctx, tx, product.ID, input.Price, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	return product, nil
}

// UpdateProduct is the single write path for products; review averages go
// through it too.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	var product *domain.Product
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		product, err = tx.Products().LockByID(ctx, id)
		if err != nil {
			return err
		}

		patch.Apply(product)
		if err := validateProduct(product); err != nil {
			return err
		}

		if patch.TouchesSKU() {
			if product.SKU, err = s.sku(ctx, tx, product); err != nil {
				return err
			}
		}
		return tx.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *catalogService) sku(ctx context.Context, tx repository.Store, product *domain.Product) (string, error) {
	supplierName := ""
	if product.SupplierID != nil {
		supplier, err := tx.Suppliers().FindByID(ctx, *product.SupplierID)
		if err != nil {
			if errors.Is(err, repository.ErrSupplierNotFound) {
				return "", repository.ErrInvalidSupplier
			}
			return "", err
		}
		supplierName = supplier.Name
	}
	return domain.GenerateSKU(supplierName, product.Name, product.Category), nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) ([]*domain.Product, int, error) {
	return s.store.Products().List(ctx, query.Filter, query.Page, query.PageSize, query.SortBy, query.SortOrder)
}

// RelatedProducts lists the other products in the product's category.
func (s *catalogService) RelatedProducts(ctx context.Context, productID uuid.UUID) ([]*domain.Product, error) {
	product, err := s.store.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.store.Products().ListRelated(ctx, product.Category, product.ID)
}

func (s *catalogService) CreateTag(ctx context.Context, name string, productID uuid.UUID) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}
	if len(name) > 16 {
		return nil, domain.NewValidationError("name", "must be at most 16 characters")
	}

	tag := &domain.Tag{Name: name, ProductID: productID}
	if err := s.store.Tags().Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *catalogService) DeleteTag(ctx context.Context, name string) error {
	return s.store.Tags().Delete(ctx, name)
}

func (s *catalogService) GetTag(ctx context.Context, name string) (*domain.Tag, error) {
	return s.store.Tags().FindByName(ctx, name)
}

func (s *catalogService) ListTags(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Tag, int, error) {
	return s.store.Tags().List(ctx, productID, page, pageSize)
}

func validateSupplier(supplier *domain.Supplier) error {
	switch {
	case strings.TrimSpace(supplier.Name) == "":
		return domain.NewValidationError("name", "must not be blank")
	case len(supplier.Name) > 32:
		return domain.NewValidationError("name", "must be at most 32 characters")
	case len(supplier.Address) > 64:
		return domain.NewValidationError("address", "must be at most 64 characters")
	case supplier.Phone == "":
		return domain.NewValidationError("phone", "must not be blank")
	case len(supplier.Phone) > 11:
		return domain.NewValidationError("phone", "must be at most 11 characters")
	}
	return nil
}

func validateProduct(product *domain.Product) error {
	switch {
	case strings.TrimSpace(product.Name) == "":
		return domain.NewValidationError("name", "must not be blank")
	case len(product.Name) > 32:
		return domain.NewValidationError("name", "must be at most 32 characters")
	case !product.Category.Valid():
		return domain.NewValidationError("category", "must be one of 1 (Science), 2 (Fiction), 3 (Journalism), 4 (Didactic)")
	}
	return nil
}
