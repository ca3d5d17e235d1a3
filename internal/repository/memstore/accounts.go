package memstore

import (
	"context"
	"time"

	"book-store/internal/domain"
	"book-store/internal/repository"

	"github.com/google/uuid"
)

type customers struct{ s *Store }

func (r customers) Create(ctx context.Context, customer *domain.Customer) error {
	st, unlock, err := r.s.lock("customers.Create")
	if err != nil {
		return err
	}
	defer unlock()

	for _, c := range st.customers {
		if c.Username == customer.Username {
			return repository.ErrCustomerAlreadyExists
		}
	}
	st.customers[customer.ID] = *customer
	return nil
}

func (r customers) Update(ctx context.Context, customer *domain.Customer) error {
	st, unlock, err := r.s.lock("customers.Update")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[customer.ID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for id, c := range st.customers {
		if id != customer.ID && c.Username == customer.Username {
			return repository.ErrCustomerAlreadyExists
		}
	}
	st.customers[customer.ID] = *customer
	return nil
}

func (r customers) Delete(ctx context.Context, id uuid.UUID) error {
	st, unlock, err := r.s.lock("customers.Delete")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[id]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, sale := range st.sales {
		if sale.CustomerID == id {
			return repository.ErrCustomerInUse
		}
	}
	for _, review := range st.reviews {
		if review.CustomerID == id {
			return repository.ErrCustomerInUse
		}
	}

	delete(st.customers, id)
	for cartID, row := range st.carts {
		if row.cart.CustomerID == id {
			delete(st.carts, cartID)
		}
	}
	for token, t := range st.accessTokens {
		if t.CustomerID == id {
			delete(st.accessTokens, token)
		}
	}
	for token, t := range st.refreshTokens {
		if t.CustomerID == id {
			delete(st.refreshTokens, token)
		}
	}
	return nil
}

func (r customers) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	st, unlock, err := r.s.lock("customers.FindByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := st.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	return &c, nil
}

func (r customers) FindByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	st, unlock, err := r.s.lock("customers.FindByUsername")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, c := range st.customers {
		if c.Username == username {
			return &c, nil
		}
	}
	return nil, repository.ErrCustomerNotFound
}

func (r customers) List(ctx context.Context, pageNum, pageSize int) ([]*domain.Customer, int, error) {
	st, unlock, err := r.s.lock("customers.List")
	if err != nil {
		return nil, 0, err
	}
	defer unlock()

	all := make([]*domain.Customer, 0, len(st.customers))
	for _, c := range st.customers {
		c := c
		all = append(all, &c)
	}
	sortedBy(all, func(a, b *domain.Customer) bool {
		if a.DateJoined.Equal(b.DateJoined) {
			return a.Username < b.Username
		}
		return a.DateJoined.Before(b.DateJoined)
	})
	return page(all, pageNum, pageSize), len(all), nil
}

type oauth struct{ s *Store }

func (r oauth) CreateApplication(ctx context.Context, app *domain.OAuthApplication) error {
	st, unlock, err := r.s.lock("oauth.CreateApplication")
	if err != nil {
		return err
	}
	defer unlock()

	for _, a := range st.apps {
		if a.ClientID == app.ClientID {
			return repository.ErrApplicationAlreadyExists
		}
	}
	st.apps[app.ID] = *app
	return nil
}

func (r oauth) FindApplicationByClientID(ctx context.Context, clientID string) (*domain.OAuthApplication, error) {
	st, unlock, err := r.s.lock("oauth.FindApplicationByClientID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, a := range st.apps {
		if a.ClientID == clientID {
			return &a, nil
		}
	}
	return nil, repository.ErrApplicationNotFound
}

func (r oauth) CreateAccessToken(ctx context.Context, token *domain.OAuthAccessToken) error {
	st, unlock, err := r.s.lock("oauth.CreateAccessToken")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[token.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	if _, ok := st.apps[token.ApplicationID]; !ok {
		return repository.ErrApplicationNotFound
	}
	st.accessTokens[token.Token] = *token
	return nil
}

func (r oauth) FindAccessToken(ctx context.Context, token string) (*domain.OAuthAccessToken, error) {
	st, unlock, err := r.s.lock("oauth.FindAccessToken")
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, ok := st.accessTokens[token]
	if !ok {
		return nil, repository.ErrAccessTokenNotFound
	}
	return &t, nil
}

func (r oauth) DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error) {
	st, unlock, err := r.s.lock("oauth.DeleteExpiredAccessTokens")
	if err != nil {
		return 0, err
	}
	defer unlock()

	var n int64
	for token, t := range st.accessTokens {
		if t.ExpiresAt.Before(before) {
			delete(st.accessTokens, token)
			n++
		}
	}
	return n, nil
}

type refreshTokens struct{ s *Store }

func (r refreshTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	st, unlock, err := r.s.lock("refreshTokens.Create")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := st.customers[token.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	st.refreshTokens[token.Token] = *token
	return nil
}

func (r refreshTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	st, unlock, err := r.s.lock("refreshTokens.FindByToken")
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, ok := st.refreshTokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return &t, nil
}

func (r refreshTokens) Revoke(ctx context.Context, token string) error {
	st, unlock, err := r.s.lock("refreshTokens.Revoke")
	if err != nil {
		return err
	}
	defer unlock()

	t, ok := st.refreshTokens[token]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	st.refreshTokens[token] = t
	return nil
}
