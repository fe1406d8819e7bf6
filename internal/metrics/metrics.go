// Package metrics registers the Prometheus instruments exposed by the
// web server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the service records.
type Metrics struct {
	MixesStarted   prometheus.Counter
	MixesSucceeded prometheus.Counter
	MixesFailed    *prometheus.CounterVec // labeled by error kind
	MixDuration    prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // labeled by method and route
}

// New registers the instruments with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the instruments with reg; tests pass a fresh
// registry so repeated construction doesn't collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MixesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiomix_mixes_started_total",
			Help: "Total number of mix runs started",
		}),
		MixesSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "audiomix_mixes_succeeded_total",
			Help: "Total number of mix runs that produced an output file",
		}),
		MixesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiomix_mixes_failed_total",
			Help: "Total number of failed mix runs by error kind",
		}, []string{"kind"}),
		MixDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiomix_mix_duration_seconds",
			Help:    "Wall-clock duration of mix runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiomix_http_requests_total",
			Help: "Total HTTP requests by method and route",
		}, []string{"method", "route"}),
	}
}
