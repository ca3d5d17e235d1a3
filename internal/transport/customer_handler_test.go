package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"book-store/internal/access"
	"book-store/internal/cache"
	"book-store/internal/domain"
	"book-store/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterCustomer(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/customers/", "", CustomerRequest{Username: "alice", Email: "alice@example.com", Password: "wonderland"})
	requireStatus(t, rec, http.StatusCreated)
	var customer domain.Customer
	decodeBody(t, rec, &customer)
	assert.Equal(t, "alice", customer.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(t, http.MethodPost, "/api/customers/", "", CustomerRequest{Username: "alice", Email: "other@example.com", Password: "wonderland"})
	requireStatus(t, rec, http.StatusConflict)

	rec = api.do(t, http.MethodPost, "/api/customers/", "", CustomerRequest{Username: "bob smith", Email: "bob@example.com", Password: "pw"})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `"field":"username"`)

	rec = api.do(t, http.MethodPost, "/api/customers/", "", CustomerRequest{Username: "bob", Email: "not-an-email", Password: "pw"})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)

	rec = api.do(t, http.MethodPost, "/api/customers/", "", CustomerRequest{Username: "carol", Email: "carol@example.com", Password: strings.Repeat("x", 80)})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `"field":"password"`)
}

func TestCustomerUpdateIsSelfOnly(t *testing.T) {
	api := newTestAPI(t)
	customer, token := api.customer(t)
	_, otherToken := api.customer(t)
	path := "/api/customers/" + customer.ID.String() + "/"

	rec := api.do(t, http.MethodPatch, path, "", map[string]string{"email": "new@example.com"})
	requireStatus(t, rec, http.StatusUnauthorized)

	rec = api.do(t, http.MethodPatch, path, otherToken, map[string]string{"email": "new@example.com"})
	requireStatus(t, rec, http.StatusForbidden)

	rec = api.do(t, http.MethodPatch, path, token, map[string]string{"email": "new@example.com"})
	requireStatus(t, rec, http.StatusOK)
	var updated domain.Customer
	decodeBody(t, rec, &updated)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, customer.Username, updated.Username)

	rec = api.do(t, http.MethodPatch, path, token, map[string]string{"password": strings.Repeat("x", 80)})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `"field":"password"`)

	// PUT replaces every field.
	rec = api.do(t, http.MethodPut, path, token, map[string]string{"email": "x@example.com"})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = api.do(t, http.MethodDelete, path, otherToken, nil)
	requireStatus(t, rec, http.StatusForbidden)
	rec = api.do(t, http.MethodDelete, path, token, nil)
	requireStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, path, "", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestCustomerResponsesAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	api := newTestAPI(t)
	customer, token := api.customer(t)

	logger := zap.NewNop()
	router := chi.NewRouter()
	router.Use(middleware.AuthMiddleware(api.auth, logger))
	NewCustomerHandler(api.customers, DefaultPaginator, logger).
		WithCache(cache.NewRedisCache(client, "bookstore"), 60*time.Second, 30*time.Second).
		RegisterRoutes(router, NewGuard(access.DefaultPolicy(), logger))

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, "MISS", get("/api/customers/", "").Header().Get("X-Cache"))
	require.Equal(t, "HIT", get("/api/customers/", "").Header().Get("X-Cache"))

	// A new registration is not visible until the list entry expires.
	api.customer(t)
	var page Page
	decodeBody(t, get("/api/customers/", ""), &page)
	assert.Equal(t, 1, page.Count)

	mr.FastForward(61 * time.Second)
	decodeBody(t, get("/api/customers/", ""), &page)
	assert.Equal(t, 2, page.Count)

	// Retrieve varies on the Authorization header.
	path := "/api/customers/" + customer.ID.String() + "/"
	assert.Equal(t, "MISS", get(path, "").Header().Get("X-Cache"))
	assert.Equal(t, "MISS", get(path, token).Header().Get("X-Cache"))
	assert.Equal(t, "HIT", get(path, token).Header().Get("X-Cache"))
}
