package transport

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"book-store/internal/access"
	"book-store/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guard returns the middleware that enforces the capability required for
// action on resource.
type Guard func(resource access.Resource, action access.Action) func(http.Handler) http.Handler

// NewGuard builds a Guard backed by policy.
func NewGuard(policy access.Policy, logger *zap.Logger) Guard {
	return func(resource access.Resource, action access.Action) func(http.Handler) http.Handler {
		return middleware.RequireCapability(policy, resource, action, logger)
	}
}

// Page is the envelope of every list endpoint.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

var errInvalidPage = errors.New("invalid page")

// Paginator reads page and page_size query parameters.
type Paginator struct {
	PageSize    int
	MaxPageSize int
}

// DefaultPaginator serves 10 items per page and at most 100.
var DefaultPaginator = Paginator{PageSize: 10, MaxPageSize: 100}

// Parse returns the requested page number and size. An unparsable page is an
// error; an unparsable page_size falls back to the default. Pages whose row
// offset would not fit a 32-bit integer are rejected like unparsable ones.
func (p Paginator) Parse(r *http.Request) (int, int, error) {
	size := p.PageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			size = n
		}
	}
	if size > p.MaxPageSize {
		size = p.MaxPageSize
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, errInvalidPage
		}
		if size > 0 && n-1 > math.MaxInt32/size {
			return 0, 0, errInvalidPage
		}
		page = n
	}
	return page, size, nil
}

// Build wraps results with absolute links to the neighbouring pages.
func (p Paginator) Build(r *http.Request, page, size, total int, results interface{}) (Page, error) {
	lastPage := (total + size - 1) / size
	if lastPage == 0 {
		lastPage = 1
	}
	if page > lastPage {
		return Page{}, errInvalidPage
	}

	out := Page{Count: total, Results: results}
	if page < lastPage {
		next := pageURL(r, page+1)
		out.Next = &next
	}
	if page > 1 {
		previous := pageURL(r, page-1)
		out.Previous = &previous
	}
	return out, nil
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto")); proto {
	case "http", "https":
		scheme = proto
	}

	query := r.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: query.Encode()}
	return u.String()
}

// respondPage runs the usual tail of a list handler.
func respondPage(w http.ResponseWriter, r *http.Request, p Paginator, page, size, total int, results interface{}) {
	body, err := p.Build(r, page, size, total, results)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, body)
}

// pathID parses the {id} URL parameter. A malformed id cannot name any row,
// so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid filter from the query string.
func queryID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// decode reads and validates the JSON body into v, writing the 400 response
// itself when that fails.
func decode(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	return readBody(w, r, v, logger) && checkBody(w, r, v, logger)
}

// readBody decodes the JSON body into v. Handlers that must authorize on the
// body before validating it call checkBody afterwards.
func readBody(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeJSON(r, v); err != nil {
		logger.Debug("Malformed request body", zap.String("path", r.URL.Path), zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func checkBody(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	err := middleware.ValidateRequest(v)
	if err == nil {
		return true
	}
	logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return false
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
	return false
}
