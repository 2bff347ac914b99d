package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors bundles Prometheus collectors for the scrape engine.
type Collectors struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	ProductsTotal   *prometheus.CounterVec
}

// NewCollectors constructs and registers all metrics on a dedicated registry.
func NewCollectors() *Collectors {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_requests_total",
			Help: "Total backend requests issued, by marketplace and result.",
		},
		[]string{"marketplace", "result"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_request_duration_seconds",
			Help:    "Backend request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"marketplace"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_retries_total",
			Help: "Retry attempts scheduled, by marketplace.",
		},
		[]string{"marketplace"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_fallbacks_total",
			Help: "Times the fallback source was engaged, by marketplace.",
		},
		[]string{"marketplace"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_errors_total",
			Help: "Scrape errors by type.",
		},
		[]string{"error_type"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_cache_hits_total",
			Help: "Requests satisfied from the response cache.",
		},
	)
	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_products_total",
			Help: "Normalized products returned, by marketplace.",
		},
		[]string{"marketplace"},
	)

	registry.MustRegister(requests, requestDuration, retries, fallbacks, errorsTotal, cacheHits, products)

	return &Collectors{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RetriesTotal:    retries,
		FallbacksTotal:  fallbacks,
		ErrorsTotal:     errorsTotal,
		CacheHitsTotal:  cacheHits,
		ProductsTotal:   products,
	}
}

// ObserveRequest records one backend attempt.
func (c *Collectors) ObserveRequest(marketplace string, success bool, d time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if !success {
		result = "error"
	}
	c.RequestsTotal.WithLabelValues(marketplace, result).Inc()
	c.RequestDuration.WithLabelValues(marketplace).Observe(d.Seconds())
}

// IncRetry increments the retry counter.
func (c *Collectors) IncRetry(marketplace string) {
	if c == nil {
		return
	}
	c.RetriesTotal.WithLabelValues(marketplace).Inc()
}

// IncFallback increments the fallback counter.
func (c *Collectors) IncFallback(marketplace string) {
	if c == nil {
		return
	}
	c.FallbacksTotal.WithLabelValues(marketplace).Inc()
}

// IncError increments the error counter for a type label.
func (c *Collectors) IncError(errorType string) {
	if c == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCacheHit increments the cache hit counter.
func (c *Collectors) IncCacheHit() {
	if c == nil {
		return
	}
	c.CacheHitsTotal.Inc()
}

// AddProducts counts normalized products handed to callers.
func (c *Collectors) AddProducts(marketplace string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ProductsTotal.WithLabelValues(marketplace).Add(float64(n))
}
