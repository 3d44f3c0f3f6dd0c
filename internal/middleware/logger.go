package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"
)

// Logger logs every request with the real client ip.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			logrus.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"ip":         realip.FromRequest(r),
				"method":     r.Method,
				"uri":        r.RequestURI,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
			}).Debug("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// BodyLimiter limits request body size.
func BodyLimiter(size int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
