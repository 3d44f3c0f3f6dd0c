package rest

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Decentr-net/iris/internal/api"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "iris",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of requests to the backend",
		},
		[]string{"operation", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "iris",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests to the backend in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// observe is deferred with a pointer to the named error result.
func observe(operation string, start time.Time, err *error) {
	requestsTotal.WithLabelValues(operation, outcome(*err)).Inc()
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, api.ErrAuth):
		return "auth"
	case errors.Is(err, api.ErrNotFound):
		return "not_found"
	case errors.Is(err, api.ErrValidation):
		return "validation"
	default:
		return "network"
	}
}
