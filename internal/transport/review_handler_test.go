package transport

import (
	"net/http"
	"testing"

	"book-store/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestReviewLifecycle(t *testing.T) {
	api := newTestAPI(t)
	author, token := api.customer(t)
	_, otherToken := api.customer(t)
	staffToken := api.staff(t)
	product := api.product(t, 100)

	// Authenticated callers default to reviewing as themselves.
	rec := api.do(t, http.MethodPost, "/api/reviews/", token, ReviewRequest{Product: product.ID, Value: floatPtr(4.5)})
	requireStatus(t, rec, http.StatusCreated)
	var review domain.Review
	decodeBody(t, rec, &review)
	assert.Equal(t, author.ID, review.CustomerID)

	path := "/api/reviews/" + review.ID.String() + "/"

	rec = api.do(t, http.MethodPatch, path, otherToken, ReviewPatchRequest{Value: floatPtr(1)})
	requireStatus(t, rec, http.StatusForbidden)

	rec = api.do(t, http.MethodPatch, path, token, ReviewPatchRequest{Value: floatPtr(0)})
	requireStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &review)
	assert.Equal(t, 0.0, review.Value)

	rec = api.do(t, http.MethodGet, "/api/reviews/?product="+product.ID.String(), "", nil)
	requireStatus(t, rec, http.StatusOK)
	var page Page
	decodeBody(t, rec, &page)
	assert.Equal(t, 1, page.Count)

	rec = api.do(t, http.MethodDelete, path, staffToken, nil)
	requireStatus(t, rec, http.StatusNoContent)
	rec = api.do(t, http.MethodGet, path, "", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestAnonymousReviewNamesItsCustomer(t *testing.T) {
	api := newTestAPI(t)
	author, _ := api.customer(t)
	product := api.product(t, 100)

	rec := api.do(t, http.MethodPost, "/api/reviews/", "", ReviewRequest{Product: product.ID, Value: floatPtr(3)})
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Contains(t, rec.Body.String(), `"field":"customer"`)

	rec = api.do(t, http.MethodPost, "/api/reviews/", "", ReviewRequest{Product: product.ID, Customer: &author.ID, Value: floatPtr(3)})
	requireStatus(t, rec, http.StatusCreated)

	missing := uuid.New()
	rec = api.do(t, http.MethodPost, "/api/reviews/", "", ReviewRequest{Product: product.ID, Customer: &missing, Value: floatPtr(3)})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = api.do(t, http.MethodPost, "/api/reviews/", "", map[string]interface{}{"product": product.ID, "customer": author.ID})
	requireStatus(t, rec, http.StatusBadRequest)
	require.Contains(t, rec.Body.String(), `"field":"value"`)
}
