package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for route resolution.
type Metrics struct {
	// Directions API metrics.
	DirectionsRequests    *prometheus.CounterVec // labels: outcome={ok,service_error,no_route,transport_error}
	DirectionsAPIDuration prometheus.Histogram
	DirectionsCache       *prometheus.CounterVec // labels: result={hit,miss}
	CacheEnabled          prometheus.Gauge

	// Controller metrics.
	Resolutions *prometheus.CounterVec // labels: outcome={ready,error,skipped,discarded}

	RoutesPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DirectionsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directions",
			Name:      "api_requests_total",
			Help:      "Directions API requests by outcome.",
		}, []string{"outcome"}),
		DirectionsAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "directions",
			Name:      "api_duration_seconds",
			Help:      "Directions API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DirectionsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directions",
			Name:      "cache_total",
			Help:      "Route cache lookups by result.",
		}, []string{"result"}),
		CacheEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "directions",
			Name:      "cache_enabled",
			Help:      "1 when the route cache is enabled, 0 otherwise.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directions",
			Name:      "resolutions_total",
			Help:      "Route resolution attempts by outcome.",
		}, []string{"outcome"}),
		RoutesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "directions",
			Name:      "routes_published_total",
			Help:      "Resolved routes written to the route topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "directions",
			Name:      "publish_errors_total",
			Help:      "Failed writes to the route topic.",
		}),
	}

	prometheus.MustRegister(
		m.DirectionsRequests,
		m.DirectionsAPIDuration,
		m.DirectionsCache,
		m.CacheEnabled,
		m.Resolutions,
		m.RoutesPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DirectionsRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "directions", Name: "api_requests_total"}, []string{"outcome"}),
		DirectionsAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "directions", Name: "api_duration_seconds"}),
		DirectionsCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "directions", Name: "cache_total"}, []string{"result"}),
		CacheEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "directions", Name: "cache_enabled"}),
		Resolutions:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "directions", Name: "resolutions_total"}, []string{"outcome"}),
		RoutesPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "directions", Name: "routes_published_total"}),
		PublishErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "directions", Name: "publish_errors_total"}),
	}
}
