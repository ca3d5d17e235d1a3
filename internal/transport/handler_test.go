package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatorParse(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		size     int
		wantsErr bool
	}{
		{"", 1, 10, false},
		{"?page=3", 3, 10, false},
		{"?page_size=25", 1, 25, false},
		{"?page_size=1000", 1, 100, false},
		{"?page_size=abc", 1, 10, false},
		{"?page=0", 0, 0, true},
		{"?page=last", 0, 0, true},
		{"?page=214748365", 214748365, 10, false},
		{"?page=214748366", 0, 0, true},
		{"?page=9223372036854775807", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page, size, err := DefaultPaginator.Parse(httptest.NewRequest(http.MethodGet, "/api/tags/"+tt.query, nil))
			if tt.wantsErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestPaginatorBuildUsesForwardedScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tags/?search=x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	page, err := DefaultPaginator.Build(req, 1, 10, 11, []string{})
	require.NoError(t, err)
	require.NotNil(t, page.Next)
	assert.Equal(t, "https://example.com/api/tags/?page=2&search=x", *page.Next)
	assert.Nil(t, page.Previous)

	// An empty listing still has a first page.
	page, err = DefaultPaginator.Build(req, 1, 10, 0, []string{})
	require.NoError(t, err)
	assert.Nil(t, page.Next)
}

func TestPaginatorBuildIgnoresUnknownForwardedScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tags/", nil)
	req.Header.Set("X-Forwarded-Proto", "javascript")

	page, err := DefaultPaginator.Build(req, 1, 10, 11, []string{})
	require.NoError(t, err)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/tags/?page=2", *page.Next)
}

func TestHugePageIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/products/?page=9223372036854775807", "", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

// Feature: book-store, Property 8: Pages link to their neighbours
func TestProperty_PageLinks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("next exists exactly when more items follow", prop.ForAll(
		func(total, size, page int) bool {
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/products/?page=%d", page), nil)
			body, err := DefaultPaginator.Build(req, page, size, total, nil)
			if page*size-size >= total && page > 1 {
				return err != nil
			}
			if err != nil {
				return false
			}
			hasMore := page*size < total
			return (body.Next != nil) == hasMore && (body.Previous != nil) == (page > 1)
		},
		gen.IntRange(0, 300),
		gen.IntRange(1, 100),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
