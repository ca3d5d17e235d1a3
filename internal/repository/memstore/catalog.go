package memstore

import (
	"context"
	"strings"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
)

type suppliers struct{ s *Store }

func (r suppliers) Create(ctx context.Context, supplier *domain.Supplier) error {
	st, unlock, err := r.s.lock("suppliers.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if supplierConflict(st, supplier) {
		return repository.ErrSupplierAlreadyExists
	}
	st.suppliers[supplier.ID] = *supplier
	return nil
}

func (r suppliers) Update(ctx context.Context, supplier *domain.Supplier) error {
	st, unlock, err := r.s.lock("suppliers.Update")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.suppliers[supplier.ID]; !ok {
		return repository.ErrSupplierNotFound
	}
	if supplierConflict(st, supplier) {
		return repository.ErrSupplierAlreadyExists
	}
	st.suppliers[supplier.ID] = *supplier
	return nil
}

func supplierConflict(st *state, supplier *domain.Supplier) bool {
	for id, s := range st.suppliers {
		if id != supplier.ID && (s.Name == supplier.Name || s.Phone == supplier.Phone) {
			return true
		}
	}
	return false
}

func (r suppliers) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock, err := r.s.lock("suppliers.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.suppliers[id]; !ok {
		return repository.ErrSupplierNotFound
	}
	delete(st.suppliers, id)
	for pid, p := range st.products {
		if p.SupplierID != nil && *p.SupplierID == id {
			p.SupplierID = nil
			st.products[pid] = p
		}
	}
	return nil
}

func (r suppliers) FindByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	st, unlock, err := r.s.lock("suppliers.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, ok := st.suppliers[id]
	if !ok {
		return nil, repository.ErrSupplierNotFound
	}
	return &s, nil
}

func (r suppliers) List(ctx context.Context, pageNum, pageSize int) ([]*domain.Supplier, int, error) {
	st, unlock, err := r.s.lock("suppliers.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := make([]*domain.Supplier, 0, len(st.suppliers))
	for _, s := range st.suppliers {
		s := s
		all = append(all, &s)
	}
	sortedBy(all, func(a, b *domain.Supplier) bool { return a.Name < b.Name })
	return page(all, pageNum, pageSize), len(all), nil
}

type products struct{ s *Store }

func (r products) Create(ctx context.Context, product *domain.Product) error {
	st, unlock, err := r.s.lock("products.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if product.SupplierID != nil {
		if _, ok := st.suppliers[*product.SupplierID]; !ok {
			return repository.ErrInvalidSupplier
		}
	}
	st.products[product.ID] = copyProduct(*product)
	return nil
}

func (r products) Update(ctx context.Context, product *domain.Product) error {
	st, unlock, err := r.s.lock("products.Update")
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := st.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if product.SupplierID != nil {
		if _, ok := st.suppliers[*product.SupplierID]; !ok {
			return repository.ErrInvalidSupplier
		}
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = now()
	st.products[product.ID] = copyProduct(*product)
	return nil
}

func (r products) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock, err := r.s.lock("products.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(st.products, id)
	for name, t := range st.tags {
		if t.ProductID == id {
			delete(st.tags, name)
		}
	}
	for pid, p := range st.prices {
		if p.ProductID == id {
			delete(st.prices, pid)
		}
	}
	for rid, rv := range st.reviews {
		if rv.ProductID == id {
			delete(st.reviews, rid)
		}
	}
	for cid, row := range st.carts {
		row.products = without(row.products, map[uuid.UUID]bool{id: true})
		st.carts[cid] = row
	}
	for sid, sale := range st.sales {
		items := sale.Items[:0:0]
		for _, item := range sale.Items {
			if item.ProductID != id {
				items = append(items, item)
			}
		}
		sale.Items = items
		st.sales[sid] = sale
	}
	return nil
}

func (r products) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find("products.FindByID", id)
}

func (r products) LockByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.find("products.LockByID", id)
}

func (r products) find(op string, id uuid.UUID) (*domain.Product, error) {
	st, unlock, err := r.s.lock(op)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := st.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r products) List(ctx context.Context, filter repository.ProductFilter, pageNum, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	st, unlock, err := r.s.lock("products.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	all := []*domain.Product{}
	for _, p := range st.products {
		if filter.Category != nil && p.Category != *filter.Category {
			continue
		}
		if filter.SupplierID != nil && (p.SupplierID == nil || *p.SupplierID != *filter.SupplierID) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		p = copyProduct(p)
		all = append(all, &p)
	}

	less := func(a, b *domain.Product) int {
		switch sortBy {
		case "name":
			return strings.Compare(a.Name, b.Name)
		case "category":
			return int(a.Category) - int(b.Category)
		case "average_review":
			switch {
			case a.AverageReview < b.AverageReview:
				return -1
			case a.AverageReview > b.AverageReview:
				return 1
			}
			return 0
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	desc := sortOrder != repository.SortOrderAsc
	sortedBy(all, func(a, b *domain.Product) bool {
		c := less(a, b)
		if c == 0 {
			return a.ID.String() < b.ID.String()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})

	return page(all, pageNum, pageSize), len(all), nil
}

func (r products) ListRelated(ctx context.Context, category domain.Category, excludeID uuid.UUID) ([]*domain.Product, error) {
	st, unlock, err := r.s.lock("products.ListRelated")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []*domain.Product{}
	for _, p := range st.products {
		if p.Category == category && p.ID != excludeID {
			p = copyProduct(p)
			out = append(out, &p)
		}
	}
	return sortedBy(out, func(a, b *domain.Product) bool { return a.Name < b.Name }), nil
}

func (r products) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]*domain.Product, error) {
	st, unlock, err := r.s.lock("products.ListBySupplier")
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := []*domain.Product{}
	for _, p := range st.products {
		if p.SupplierID != nil && *p.SupplierID == supplierID {
			p = copyProduct(p)
			out = append(out, &p)
		}
	}
	return sortedBy(out, func(a, b *domain.Product) bool { return a.ID.String() < b.ID.String() }), nil
}

func copyProduct(p domain.Product) domain.Product {
	if p.SupplierID != nil {
		id := *p.SupplierID
		p.SupplierID = &id
	}
	return p
}

type tags struct{ s *Store }

func (r tags) Create(ctx context.Context, tag *domain.Tag) error {
	st, unlock, err := r.s.lock("tags.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.tags[tag.Name]; ok {
		return repository.ErrTagAlreadyExists
	}
	if _, ok := st.products[tag.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	st.tags[tag.Name] = *tag
	return nil
}

func (r tags) Delete(ctx context.Context, name string) error {
	st, unlock, err := r.s.lock("tags.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.tags[name]; !ok {
		return repository.ErrTagNotFound
	}
	delete(st.tags, name)
	return nil
}

func (r tags) FindByName(ctx context.Context, name string) (*domain.Tag, error) {
	st, unlock, err := r.s.lock("tags.FindByName")
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, ok := st.tags[name]
	if !ok {
		return nil, repository.ErrTagNotFound
	}
	return &t, nil
}

func (r tags) List(ctx context.Context, productID *uuid.UUID, pageNum, pageSize int) ([]*domain.Tag, int, error) {
	st, unlock, err := r.s.lock("tags.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := []*domain.Tag{}
	for _, t := range st.tags {
		if productID == nil || t.ProductID == *productID {
			t := t
			all = append(all, &t)
		}
	}
	sortedBy(all, func(a, b *domain.Tag) bool { return a.Name < b.Name })
	return page(all, pageNum, pageSize), len(all), nil
}

type reviews struct{ s *Store }

func (r reviews) Create(ctx context.Context, review *domain.Review) error {
	st, unlock, err := r.s.lock("reviews.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.products[review.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if _, ok := st.customers[review.CustomerID]; !ok {
		return repository.ErrInvalidCustomer
	}
	st.reviews[review.ID] = *review
	return nil
}

func (r reviews) Update(ctx context.Context, review *domain.Review) error {
	st, unlock, err := r.s.lock("reviews.Update")
	if err != nil {
		return err
	}
	defer unlock()

	existing, ok := st.reviews[review.ID]
	if !ok {
		return repository.ErrReviewNotFound
	}
	if _, ok := st.products[review.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	existing.ProductID = review.ProductID
	existing.Value = review.Value
	existing.UpdatedAt = now()
	st.reviews[review.ID] = existing
	*review = existing
	return nil
}

func (r reviews) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock, err := r.s.lock("reviews.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.reviews[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(st.reviews, id)
	return nil
}

func (r reviews) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	st, unlock, err := r.s.lock("reviews.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	rv, ok := st.reviews[id]
	if !ok {
		return nil, repository.ErrReviewNotFound
	}
	return &rv, nil
}

func (r reviews) List(ctx context.Context, productID *uuid.UUID, pageNum, pageSize int) ([]*domain.Review, int, error) {
	st, unlock, err := r.s.lock("reviews.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := []*domain.Review{}
	for _, rv := range st.reviews {
		if productID == nil || rv.ProductID == *productID {
			rv := rv
			all = append(all, &rv)
		}
	}
	sortedBy(all, func(a, b *domain.Review) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return page(all, pageNum, pageSize), len(all), nil
}

func (r reviews) Stats(ctx context.Context, productID uuid.UUID) (domain.ReviewStats, error) {
	st, unlock, err := r.s.lock("reviews.Stats")
	if err != nil {
		return domain.ReviewStats{}, err
	}
	defer unlock()

	var stats domain.ReviewStats
	var sum float64
	for _, rv := range st.reviews {
		if rv.ProductID == productID {
			stats.Count++
			sum += rv.Value
		}
	}
	if stats.Count > 0 {
		stats.Average = sum / float64(stats.Count)
	}
	return stats, nil
}
