// Package metrics provides centralized Prometheus metrics for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track request patterns and performance
var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Business metrics track lookups, the product cache, and the upstream catalog
var (
	// ProductCacheHits counts product lookups served from the cache
	ProductCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_cache_hits_total",
			Help: "Total number of product cache hits",
		},
	)

	// ProductCacheMisses counts product lookups that went upstream
	ProductCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_cache_misses_total",
			Help: "Total number of product cache misses",
		},
	)

	// CatalogRequestsTotal counts upstream catalog requests by outcome
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of upstream catalog requests",
		},
		[]string{"outcome"}, // outcome: ok, not_found, rate_limited, error
	)

	// CacheReapedTotal counts expired product cache entries deleted by the reaper
	CacheReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "product_cache_reaped_total",
			Help: "Total number of expired product cache entries deleted",
		},
	)

	// IngestRowsTotal counts processed ingestion rows by result
	IngestRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Total number of processed ingestion rows",
		},
		[]string{"result"}, // result: inserted, updated, skipped
	)
)

// RecordHTTPRequest records an HTTP request with its metadata.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
