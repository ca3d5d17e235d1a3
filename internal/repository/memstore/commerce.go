package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
)

type prices struct{ s *Store }

func (r prices) Create(ctx context.Context, price *domain.PriceHistory) error {
	st, unlock, err := r.s.lock("prices.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.products[price.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	if price.End == nil {
		for _, p := range st.prices {
			if p.ProductID == price.ProductID && p.End == nil {
				return repository.ErrActivePriceExists
			}
		}
	}
	st.prices[price.ID] = copyPrice(*price)
	return nil
}

func (r prices) Close(ctx context.Context, id uuid.UUID, end time.Time) error {
	st, unlock, err := r.s.lock("prices.Close")
	if err != nil {
		return err
	}
	defer unlock()

	p, ok := st.prices[id]
	if !ok || p.End != nil {
		return repository.ErrPriceNotFound
	}
	p.End = &end
	st.prices[id] = p
	return nil
}

func (r prices) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock, err := r.s.lock("prices.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.prices[id]; !ok {
		return repository.ErrPriceNotFound
	}
	delete(st.prices, id)
	return nil
}

func (r prices) FindByID(ctx context.Context, id uuid.UUID) (*domain.PriceHistory, error) {
	st, unlock, err := r.s.lock("prices.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := st.prices[id]
	if !ok {
		return nil, repository.ErrPriceNotFound
	}
	p = copyPrice(p)
	return &p, nil
}

func (r prices) FindActive(ctx context.Context, productID uuid.UUID) (*domain.PriceHistory, error) {
	st, unlock, err := r.s.lock("prices.FindActive")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var active []domain.PriceHistory
	for _, p := range st.prices {
		if p.ProductID == productID && p.End == nil {
			active = append(active, copyPrice(p))
		}
	}
	switch len(active) {
	case 0:
		return nil, repository.ErrNoActivePrice
	case 1:
		return &active[0], nil
	default:
		return nil, repository.ErrMultipleActivePrices
	}
}

func (r prices) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*domain.PriceHistory, error) {
	all, _, err := r.list("prices.ListByProduct", &productID)
	return all, err
}

func (r prices) List(ctx context.Context, productID *uuid.UUID, pageNum, pageSize int) ([]*domain.PriceHistory, int, error) {
	all, total, err := r.list("prices.List", productID)
	if err != nil {
		return nil, 0, err
	}
	return page(all, pageNum, pageSize), total, nil
}

func (r prices) list(op string, productID *uuid.UUID) ([]*domain.PriceHistory, int, error) {
	st, unlock, err := r.s.lock(op)
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := []*domain.PriceHistory{}
	for _, p := range st.prices {
		if productID == nil || p.ProductID == *productID {
			p = copyPrice(p)
			all = append(all, &p)
		}
	}
	sortedBy(all, func(a, b *domain.PriceHistory) bool {
		if a.Start.Equal(b.Start) {
			// Open intervals sort last.
			if a.End == nil || b.End == nil {
				return a.End != nil && b.End == nil
			}
			return a.End.Before(*b.End)
		}
		return a.Start.Before(b.Start)
	})
	return all, len(all), nil
}

func copyPrice(p domain.PriceHistory) domain.PriceHistory {
	if p.End != nil {
		end := *p.End
		p.End = &end
	}
	return p
}

type carts struct{ s *Store }

func (r carts) Create(ctx context.Context, cart *domain.Cart) error {
	st, unlock, err := r.s.lock("carts.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[cart.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, row := range st.carts {
		if row.cart.CustomerID == cart.CustomerID {
			return repository.ErrCartAlreadyExists
		}
	}
	st.carts[cart.ID] = cartRow{cart: *cart, products: append([]uuid.UUID(nil), cart.ProductIDs...)}
	return nil
}

func (r carts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	st, unlock, err := r.s.lock("carts.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	row, ok := st.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return row.view(), nil
}

func (r carts) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.byCustomer("carts.FindByCustomer", customerID)
}

func (r carts) LockByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.byCustomer("carts.LockByCustomer", customerID)
}

func (r carts) byCustomer(op string, customerID uuid.UUID) (*domain.Cart, error) {
	st, unlock, err := r.s.lock(op)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, row := range st.carts {
		if row.cart.CustomerID == customerID {
			return row.view(), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (row cartRow) view() *domain.Cart {
	cart := row.cart
	cart.ProductIDs = append([]uuid.UUID{}, row.products...)
	return &cart
}

func (r carts) AddProduct(ctx context.Context, cartID, productID uuid.UUID) error {
	st, unlock, err := r.s.lock("carts.AddProduct")
	if err != nil {
		return err
	}
	defer unlock()

	row, ok := st.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if _, ok := st.products[productID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, id := range row.products {
		if id == productID {
			return nil
		}
	}
	row.products = append(row.products, productID)
	st.carts[cartID] = row
	return nil
}

func (r carts) RemoveProducts(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) error {
	st, unlock, err := r.s.lock("carts.RemoveProducts")
	if err != nil {
		return err
	}
	defer unlock()

	row, ok := st.carts[cartID]
	if !ok {
		return nil
	}
	drop := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	row.products = without(row.products, drop)
	st.carts[cartID] = row
	return nil
}

func without(ids []uuid.UUID, drop map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

type sales struct{ s *Store }

func (r sales) Create(ctx context.Context, sale *domain.Sale) error {
	st, unlock, err := r.s.lock("sales.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[sale.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, item := range sale.Items {
		if _, ok := st.products[item.ProductID]; !ok {
			return repository.ErrProductNotFound
		}
	}
	stored := *sale
	stored.Items = append([]domain.SaleItem{}, sale.Items...)
	st.sales[sale.ID] = stored
	return nil
}

func (r sales) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	st, unlock, err := r.s.lock("sales.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	sale, ok := st.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	sale.Items = append([]domain.SaleItem{}, sale.Items...)
	return &sale, nil
}

func (r sales) List(ctx context.Context, customerID *uuid.UUID, pageNum, pageSize int) ([]*domain.Sale, int, error) {
	st, unlock, err := r.s.lock("sales.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := []*domain.Sale{}
	for _, sale := range st.sales {
		if customerID == nil || sale.CustomerID == *customerID {
			sale.Items = append([]domain.SaleItem{}, sale.Items...)
			all = append(all, &sale)
		}
	}
	sortedBy(all, func(a, b *domain.Sale) bool {
		if a.Date.Equal(b.Date) {
			return a.ID.String() < b.ID.String()
		}
		return a.Date.After(b.Date)
	})
	return page(all, pageNum, pageSize), len(all), nil
}

type outbox struct{ s *Store }

func (r outbox) Insert(ctx context.Context, eventID uuid.UUID, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode outbox payload: %w", err)
	}

	st, unlock, err := r.s.lock("outbox.Insert")
	if err != nil {
		return err
	}
	defer unlock()

	for _, e := range st.outbox {
		if e.EventID == eventID {
			return fmt.Errorf("duplicate outbox event %s", eventID)
		}
	}
	st.outboxSeq++
	st.outbox = append(st.outbox, domain.OutboxEvent{
		ID:        st.outboxSeq,
		EventID:   eventID,
		Topic:     topic,
		Key:       key,
		Payload:   data,
		CreatedAt: now(),
	})
	return nil
}

func (r outbox) FetchPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	st, unlock, err := r.s.lock("outbox.FetchPending")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []domain.OutboxEvent
	for _, e := range st.outbox {
		if e.SentAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r outbox) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	st, unlock, err := r.s.lock("outbox.MarkSent")
	if err != nil {
		return err
	}
	defer unlock()

	marked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range st.outbox {
		if marked[st.outbox[i].ID] {
			sent := at
			st.outbox[i].SentAt = &sent
		}
	}
	return nil
}
