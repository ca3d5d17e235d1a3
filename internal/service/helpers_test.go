package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/queue"
	"book-store/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEnqueuer records tasks instead of sending them to Redis.
type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, task queue.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeEnqueuer) products() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, len(f.tasks))
	for i, task := range f.tasks {
		ids[i] = task.ProductID
	}
	return ids
}

type fixture struct {
	store     *memstore.Store
	customers CustomerService
	catalog   CatalogService
	pricing   PricingService
	carts     CartService
	checkout  CheckoutService
	reviews   ReviewService
	tasks     *fakeEnqueuer
}

func newFixture() *fixture {
	store := memstore.New()
	logger := zap.NewNop()
	tasks := &fakeEnqueuer{}
	return &fixture{
		store:     store,
		customers: NewCustomerService(store, logger),
		catalog:   NewCatalogService(store, nil, logger),
		pricing:   NewPricingService(store, nil, logger),
		carts:     NewCartService(store),
		checkout:  NewCheckoutService(store, 5*time.Second, nil, logger),
		reviews:   NewReviewService(store, tasks, logger),
		tasks:     tasks,
	}
}

func callerFor(c *domain.Customer) access.Caller {
	return access.Caller{CustomerID: c.ID, Role: c.Role(), Authenticated: true}
}

func (f *fixture) customer(t *testing.T) *domain.Customer {
	t.Helper()
	c, err := f.customers.Register(context.Background(), "user"+uuid.NewString()[:8], "user@example.com", "secret")
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, price int64) *domain.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), NewProduct{
		Name:     "Book " + uuid.NewString()[:8],
		Category: domain.CategoryFiction,
		Price:    price,
	})
	require.NoError(t, err)
	return p
}
