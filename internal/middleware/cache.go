// Package middleware contains http middlewares of the gateway.
package middleware

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/Decentr-net/iris/internal/middleware/memory"
)

// Storage ...
type Storage interface {
	Get(key string) []byte
	Set(key string, content []byte, duration time.Duration)
}

// Cached caches successful json responses of handler by request uri for ttl.
func Cached(ttl time.Duration, handler func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return CachedWithStorage(memory.NewStorage(), ttl, handler)
}

// CachedWithStorage is Cached over the given storage.
func CachedWithStorage(storage Storage, ttl time.Duration, handler func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if content := storage.Get(r.RequestURI); content != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(content)
			return
		}

		c := httptest.NewRecorder()
		handler(c, r)

		for k, v := range c.Header() {
			w.Header()[k] = v
		}
		w.Header().Set("X-Cache", "MISS")

		w.WriteHeader(c.Code)
		content := c.Body.Bytes()

		// errors are not cached
		if c.Code >= http.StatusOK && c.Code < http.StatusMultipleChoices {
			storage.Set(r.RequestURI, content, ttl)
		}

		_, _ = w.Write(content)
	}
}
