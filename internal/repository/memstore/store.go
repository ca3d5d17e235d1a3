// Package memstore is an in-memory repository.Store for service and handler
// tests. It enforces the same uniqueness and reference rules as the schema and
// returns the same sentinel errors as the SQL repositories.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
)

type cartRow struct {
	cart     domain.Cart
	products []uuid.UUID
}

type state struct {
	customers     map[uuid.UUID]domain.Customer
	apps          map[uuid.UUID]domain.OAuthApplication
	accessTokens  map[string]domain.OAuthAccessToken
	refreshTokens map[string]domain.RefreshToken
	suppliers     map[uuid.UUID]domain.Supplier
	products      map[uuid.UUID]domain.Product
	tags          map[string]domain.Tag
	prices        map[uuid.UUID]domain.PriceHistory
	reviews       map[uuid.UUID]domain.Review
	carts         map[uuid.UUID]cartRow
	sales         map[uuid.UUID]domain.Sale
	outbox        []domain.OutboxEvent
	outboxSeq     int64
}

func newState() *state {
	return &state{
		customers:     map[uuid.UUID]domain.Customer{},
		apps:          map[uuid.UUID]domain.OAuthApplication{},
		accessTokens:  map[string]domain.OAuthAccessToken{},
		refreshTokens: map[string]domain.RefreshToken{},
		suppliers:     map[uuid.UUID]domain.Supplier{},
		products:      map[uuid.UUID]domain.Product{},
		tags:          map[string]domain.Tag{},
		prices:        map[uuid.UUID]domain.PriceHistory{},
		reviews:       map[uuid.UUID]domain.Review{},
		carts:         map[uuid.UUID]cartRow{},
		sales:         map[uuid.UUID]domain.Sale{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.accessTokens {
		c.accessTokens[k] = v
	}
	for k, v := range s.refreshTokens {
		c.refreshTokens[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.prices {
		c.prices[k] = v
	}
	for k, v := range s.reviews {
		c.reviews[k] = v
	}
	for k, v := range s.carts {
		v.products = append([]uuid.UUID(nil), v.products...)
		c.carts[k] = v
	}
	for k, v := range s.sales {
		v.Items = append([]domain.SaleItem(nil), v.Items...)
		c.sales[k] = v
	}
	c.outbox = append([]domain.OutboxEvent(nil), s.outbox...)
	c.outboxSeq = s.outboxSeq
	return c
}

// Store implements repository.Store. Transactions are serialized against each
// other and a failed transaction restores the snapshot taken when it began.
// Writes made outside a transaction are not isolated from a running one.
type Store struct {
	shared *shared
	inTx   bool
}

type shared struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	st     *state
	faults map[string]error
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{shared: &shared{st: newState(), faults: map[string]error{}}}
}

// FailNext makes the next call of op return err. Ops are named
// "<repository>.<method>", for example "sales.Create" or "outbox.Insert".
func (s *Store) FailNext(op string, err error) {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	s.shared.faults[op] = err
}

// lock takes the state lock and pops a pending fault for op.
func (s *Store) lock(op string) (*state, func(), error) {
	s.shared.mu.Lock()
	unlock := s.shared.mu.Unlock
	if err, ok := s.shared.faults[op]; ok {
		delete(s.shared.faults, op)
		unlock()
		return nil, func() {}, err
	}
	return s.shared.st, unlock, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.shared.txMu.Lock()
	defer s.shared.txMu.Unlock()

	s.shared.mu.Lock()
	snapshot := s.shared.st.clone()
	s.shared.mu.Unlock()

	err := fn(&Store{shared: s.shared, inTx: true})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.shared.mu.Lock()
		s.shared.st = snapshot
		s.shared.mu.Unlock()
	}
	return err
}

func (s *Store) Customers() repository.CustomerRepository { return customers{s} }
func (s *Store) OAuth() repository.OAuthRepository { return oauth{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return refreshTokens{s} }
func (s *Store) Suppliers() repository.SupplierRepository { return suppliers{s} }
func (s *Store) Products() repository.ProductRepository { return products{s} }
func (s *Store) Tags() repository.TagRepository { return tags{s} }
func (s *Store) Prices() repository.PriceRepository { return prices{s} }
func (s *Store) Reviews() repository.ReviewRepository { return reviews{s} }
func (s *Store) Carts() repository.CartRepository { return carts{s} }
func (s *Store) Sales() repository.SaleRepository { return sales{s} }
func (s *Store) Outbox() repository.OutboxRepository { return outbox{s} }

// OutboxEvents returns a copy of every recorded outbox event.
func (s *Store) OutboxEvents() []domain.OutboxEvent {
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return append([]domain.OutboxEvent(nil), s.shared.st.outbox...)
}

func page[T any](items []T, pageNum, pageSize int) []T {
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedBy[T any](items []T, less func(a, b T) bool) []T {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return items
}

func now() time.Time {
	return time.Now().UTC()
}
