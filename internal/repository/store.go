package repository

import (
	"context"
	"database/sql"

	"book-store/internal/database"
)

// Store groups the repositories so services can run several of them inside
// one transaction.
type Store interface {
	Customers() CustomerRepository
	OAuth() OAuthRepository
	RefreshTokens() RefreshTokenRepository
	Suppliers() SupplierRepository
	Products() ProductRepository
	Tags() TagRepository
	Prices() PriceRepository
	Reviews() ReviewRepository
	Carts() CartRepository
	Sales() SaleRepository
	Outbox() OutboxRepository

	// WithTx runs fn against a transactional Store. Calling WithTx on a
	// transactional Store joins the running transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type sqlStore struct {
	db *sql.DB
	q  DBTX
}

// NewStore creates a Store backed by db.
func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db, q: db}
}

func (s *sqlStore) Customers() CustomerRepository { return NewCustomerRepository(s.q) }
func (s *sqlStore) OAuth() OAuthRepository { return NewOAuthRepository(s.q) }
func (s *sqlStore) RefreshTokens() RefreshTokenRepository { return NewRefreshTokenRepository(s.q) }
func (s *sqlStore) Suppliers() SupplierRepository { return NewSupplierRepository(s.q) }
func (s *sqlStore) Products() ProductRepository { return NewProductRepository(s.q) }
func (s *sqlStore) Tags() TagRepository { return NewTagRepository(s.q) }
func (s *sqlStore) Prices() PriceRepository { return NewPriceRepository(s.q) }
func (s *sqlStore) Reviews() ReviewRepository { return NewReviewRepository(s.q) }
func (s *sqlStore) Carts() CartRepository { return NewCartRepository(s.q) }
func (s *sqlStore) Sales() SaleRepository { return NewSaleRepository(s.q) }
func (s *sqlStore) Outbox() OutboxRepository { return NewOutboxRepository(s.q) }

func (s *sqlStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	return database.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		return fn(&sqlStore{db: s.db, q: tx})
	})
}
