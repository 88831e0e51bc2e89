// Package metrics exposes the pipeline's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the instruments the pipeline components record into.
type Registry struct {
	ScansTotal       *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ProviderErrors   *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	AlertsEmitted    *prometheus.CounterVec
	WatchlistSize    prometheus.Gauge

	reg *prometheus.Registry
}

// NewRegistry creates and registers all instruments on a fresh
// prometheus registry, so tests can hold isolated registries.
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rugscan",
		Name:      "scans_total",
		Help:      "Completed token scans by outcome",
	}, []string{"outcome"})

	r.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rugscan",
		Name:      "cache_hits_total",
		Help:      "Scan results served from cache",
	})

	r.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rugscan",
		Name:      "cache_misses_total",
		Help:      "Scan requests that missed the cache",
	})

	r.ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rugscan",
		Name:      "provider_errors_total",
		Help:      "Source fetch failures by provider",
	}, []string{"provider"})

	r.ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rugscan",
		Name:      "provider_request_seconds",
		Help:      "Source fetch latency by provider",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	r.AlertsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rugscan",
		Name:      "watchlist_alerts_total",
		Help:      "Watchlist alerts emitted by severity",
	}, []string{"severity"})

	r.WatchlistSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rugscan",
		Name:      "watchlist_items",
		Help:      "Current watchlist item count",
	})

	r.reg.MustRegister(
		r.ScansTotal, r.CacheHits, r.CacheMisses,
		r.ProviderErrors, r.ProviderDuration,
		r.AlertsEmitted, r.WatchlistSize,
	)
	return r
}

// Prometheus returns the underlying registry for the /metrics handler.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}
