package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/middleware"
	"book-store/internal/repository/memstore"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "secret-pass"

type testAPI struct {
	router    chi.Router
	store     *memstore.Store
	auth      service.AuthService
	customers service.CustomerService
	catalog   service.CatalogService
	pricing   service.PricingService
	clientID  string
	secret    string
}

// newTestAPI wires every handler over an in-memory store the way the server
// does: token routes sit outside the JWT authentication group.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()

	auth := service.NewAuthService(store, service.AuthOptions{
		JWTSecret:       "transport-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		OAuthTokenTTL:   time.Hour,
	})
	customers := service.NewCustomerService(store, logger)
	catalog := service.NewCatalogService(store, nil, logger)
	pricing := service.NewPricingService(store, nil, logger)
	carts := service.NewCartService(store)
	checkout := service.NewCheckoutService(store, 5*time.Second, nil, logger)
	reviews := service.NewReviewService(store, nil, logger)

	app, secret, err := auth.CreateApplication(context.Background(), "tests")
	require.NoError(t, err)

	guard := NewGuard(access.DefaultPolicy(), logger)
	router := chi.NewRouter()
	NewTokenHandler(auth, logger).RegisterRoutes(router, guard, nil)
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(auth, logger))
		NewCustomerHandler(customers, DefaultPaginator, logger).RegisterRoutes(r, guard)
		NewCatalogHandler(catalog, DefaultPaginator, logger).RegisterRoutes(r, guard)
		NewPriceHandler(pricing, DefaultPaginator, logger).RegisterRoutes(r, guard)
		NewReviewHandler(reviews, DefaultPaginator, logger).RegisterRoutes(r, guard)
		NewSaleHandler(carts, checkout, DefaultPaginator, logger).RegisterRoutes(r, guard)
	})

	return &testAPI{
		router:    router,
		store:     store,
		auth:      auth,
		customers: customers,
		catalog:   catalog,
		pricing:   pricing,
		clientID:  app.ClientID,
		secret:    secret,
	}
}

// do sends a JSON request with an optional bearer token.
func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login runs the password grant and token exchange and returns an access JWT.
func (a *testAPI) login(t *testing.T, username string) string {
	t.Helper()
	ctx := context.Background()
	opaque, err := a.auth.PasswordGrant(ctx, a.clientID, a.secret, username, testPassword)
	require.NoError(t, err)
	pair, err := a.auth.IssueTokenPair(ctx, opaque.Token)
	require.NoError(t, err)
	return pair.Access
}

func (a *testAPI) customer(t *testing.T) (*domain.Customer, string) {
	t.Helper()
	username := "reader" + uuid.NewString()[:8]
	customer, err := a.customers.Register(context.Background(), username, username+"@example.com", testPassword)
	require.NoError(t, err)
	return customer, a.login(t, username)
}

func (a *testAPI) staff(t *testing.T) string {
	t.Helper()
	username := "staff" + uuid.NewString()[:8]
	_, err := a.customers.CreateSuperCustomer(context.Background(), username, testPassword)
	require.NoError(t, err)
	return a.login(t, username)
}

func (a *testAPI) product(t *testing.T, price int64) *domain.Product {
	t.Helper()
	product, err := a.catalog.CreateProduct(context.Background(), service.NewProduct{
		Name:     "Book " + uuid.NewString()[:8],
		Category: domain.CategoryFiction,
		Price:    price,
	})
	require.NoError(t, err)
	return product
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// errorMessage extracts the message of the standard error envelope.
func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponse
	decodeBody(t, rec, &body)
	return body.Error.Message
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}
