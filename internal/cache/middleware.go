package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	OperationList     = "list"
	OperationRetrieve = "retrieve"

	headerCacheStatus = "X-Cache"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Options configures one cached route.
type Options struct {
	Operation string
	TTL       time.Duration
	// Vary lists request headers whose values are part of the key.
	Vary []string
}

// Middleware serves successful GET responses from the cache for TTL. Cache
// errors are logged and the request falls through to the handler.
func Middleware(c Cache, opts Options, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || opts.TTL <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := c.GenerateKey(opts.Operation, requestKey(r, opts.Vary))
			ctx := r.Context()

			if raw, err := c.Get(ctx, key); err != nil {
				logger.Warn("Response cache read failed", zap.String("key", key), zap.Error(err))
			} else if raw != "" {
				var cached cachedResponse
				if err := json.Unmarshal([]byte(raw), &cached); err == nil {
					w.Header().Set("Content-Type", cached.ContentType)
					w.Header().Set(headerCacheStatus, "HIT")
					w.WriteHeader(cached.Status)
					_, _ = w.Write(cached.Body)
					return
				}
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set(headerCacheStatus, "MISS")
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}
			data, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := c.Set(ctx, key, data, opts.TTL); err != nil {
				logger.Warn("Response cache write failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// requestKey hashes the URL and the varying headers so credentials never
// appear in Redis keys.
func requestKey(r *http.Request, vary []string) string {
	h := sha256.New()
	h.Write([]byte(r.URL.Path))
	h.Write([]byte{'?'})
	h.Write([]byte(r.URL.RawQuery))
	for _, name := range vary {
		h.Write([]byte{0})
		h.Write([]byte(r.Header.Get(name)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
