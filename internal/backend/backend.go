// Package backend holds the clients for the external scraping services.
// pricehunt never talks to a marketplace directly; it asks one of these
// backends to fetch and (sometimes) parse the page for us.
package backend

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
)

// Target tells a source what to fetch. The registry's market client builds
// it; backends only translate it into their own wire format.
type Target struct {
	URL    string            // concrete page URL (proxy source)
	Source string            // structured source name, e.g. "amazon_search"
	Params map[string]string // backend-specific parameter map
}

// Meta carries request-level telemetry back to the fetch engine.
type Meta struct {
	StatusCode int
	Latency    time.Duration
	RetryAfter time.Duration // parsed from Retry-After, 0 when absent
}

// Source is one interchangeable scraping backend.
type Source interface {
	Name() string
	// BillingKind is the credit class charged per successful call.
	BillingKind() credits.Kind
	// Fetch performs one backend call and returns the raw JSON payload.
	// Non-2xx statuses are reported through Meta with a nil error unless
	// the transport itself failed.
	Fetch(ctx context.Context, req domain.ScrapeRequest, target Target) ([]byte, Meta, error)
}

func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
