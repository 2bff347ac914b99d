package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
)

// ProxyConfig configures the universal proxy-scraper backend. It fetches an
// arbitrary URL through the provider's proxy pool and returns whatever JSON
// the provider wraps the page in.
type ProxyConfig struct {
	BaseURL   string // e.g. https://api.proxyscrape.example/v1
	APIKey    string
	UserAgent string
	Timeouts  map[domain.Marketplace]time.Duration
	Default   time.Duration // fallback timeout
}

type Proxy struct {
	cfg ProxyConfig
	hc  *http.Client
}

func NewProxy(cfg ProxyConfig) *Proxy {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pricehunt/1.0 (+local)"
	}
	if cfg.Default <= 0 {
		cfg.Default = 30 * time.Second
	}
	return &Proxy{
		cfg: cfg,
		// per-request deadlines come from the marketplace timeout below
		hc: &http.Client{},
	}
}

func (p *Proxy) Name() string { return "proxy" }

func (p *Proxy) BillingKind() credits.Kind { return credits.KindProxy }

func (p *Proxy) timeoutFor(m domain.Marketplace) time.Duration {
	if d, ok := p.cfg.Timeouts[m]; ok && d > 0 {
		return d
	}
	return p.cfg.Default
}

func (p *Proxy) Fetch(ctx context.Context, req domain.ScrapeRequest, target Target) ([]byte, Meta, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeoutFor(req.Marketplace))
	defer cancel()

	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("proxy base url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", p.cfg.APIKey)
	q.Set("url", target.URL)
	if req.Region != "" {
		q.Set("country_code", req.Region)
	}
	q.Set("output_format", "json")
	for k, v := range target.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, Meta{}, err
	}
	httpReq.Header.Set("User-Agent", p.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := p.hc.Do(httpReq)
	if err != nil {
		return nil, Meta{Latency: time.Since(start)}, fmt.Errorf("proxy get: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	meta := Meta{
		StatusCode: res.StatusCode,
		Latency:    time.Since(start),
		RetryAfter: retryAfter(res.Header),
	}
	if err != nil {
		return nil, meta, fmt.Errorf("proxy read body: %w", err)
	}
	return body, meta, nil
}
