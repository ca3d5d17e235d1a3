package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/repository/memstore"
	"book-store/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newVerifier() TokenVerifier {
	return service.NewAuthService(memstore.New(), service.AuthOptions{JWTSecret: testSecret})
}

func signToken(t *testing.T, customerID uuid.UUID, role domain.Role, tokenType string, expiresIn time.Duration) string {
	t.Helper()
	claims := service.Claims{
		CustomerID: customerID,
		Role:       role,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// captureCaller records the caller the auth middleware attached.
func captureCaller(got *access.Caller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMissingTokenContinuesAnonymously(t *testing.T) {
	var got access.Caller
	handler := AuthMiddleware(newVerifier(), zap.NewNop())(captureCaller(&got))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/products/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.AnonymousCaller, got)
}

// Feature: book-store, Property 8: Valid access tokens identify the caller
func TestProperty_ValidTokensAllowProcessing(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a valid access token attaches its customer and role", prop.ForAll(
		func(staff bool) bool {
			role := domain.RoleCustomer
			if staff {
				role = domain.RoleStaff
			}
			customerID := uuid.New()

			var got access.Caller
			handler := AuthMiddleware(newVerifier(), zap.NewNop())(captureCaller(&got))
			req := httptest.NewRequest("GET", "/api/sales/", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, customerID, role, service.TokenTypeAccess, time.Hour))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			return w.Code == http.StatusOK && got.Authenticated && got.CustomerID == customerID && got.Role == role
		},
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRejectedTokens(t *testing.T) {
	customerID := uuid.New()
	cases := map[string]string{
		"expired":       "Bearer " + signToken(t, customerID, domain.RoleCustomer, service.TokenTypeAccess, -time.Hour),
		"refresh token": "Bearer " + signToken(t, customerID, domain.RoleCustomer, service.TokenTypeRefresh, time.Hour),
		"garbage":       "Bearer not-a-jwt",
		"no prefix":     signToken(t, customerID, domain.RoleCustomer, service.TokenTypeAccess, time.Hour),
		"basic auth":    "Basic dXNlcjpwYXNz",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			var got access.Caller
			handler := AuthMiddleware(newVerifier(), zap.NewNop())(captureCaller(&got))
			req := httptest.NewRequest("GET", "/api/products/", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, got.Authenticated)
		})
	}
}

func TestExpiredTokenMessage(t *testing.T) {
	handler := AuthMiddleware(newVerifier(), zap.NewNop())(http.NotFoundHandler())
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), domain.RoleCustomer, service.TokenTypeAccess, -time.Minute))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "token expired")
}

func TestRequireCapability(t *testing.T) {
	policy := access.DefaultPolicy()
	staff := access.Caller{CustomerID: uuid.New(), Role: domain.RoleStaff, Authenticated: true}
	customer := access.Caller{CustomerID: uuid.New(), Role: domain.RoleCustomer, Authenticated: true}

	cases := []struct {
		caller   access.Caller
		resource access.Resource
		action   access.Action
		want     int
	}{
		{access.AnonymousCaller, access.ResourceProduct, access.ActionList, http.StatusOK},
		{access.AnonymousCaller, access.ResourceProduct, access.ActionCreate, http.StatusUnauthorized},
		{customer, access.ResourceProduct, access.ActionCreate, http.StatusForbidden},
		{staff, access.ResourceProduct, access.ActionCreate, http.StatusOK},
		{staff, access.ResourceSale, access.ActionDestroy, http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		r := chi.NewRouter()
		r.With(RequireCapability(policy, tc.resource, tc.action, zap.NewNop())).Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(WithCaller(req.Context(), tc.caller))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, tc.want, w.Code, "%+v", tc)
	}
}
