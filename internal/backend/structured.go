package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
)

// StructuredConfig configures the structured e-commerce backend: the
// provider renders and parses the marketplace page server-side and returns
// structured JSON. Costs more credits than the plain proxy.
type StructuredConfig struct {
	BaseURL   string // e.g. https://realtime.structscrape.example/v1/queries
	Username  string
	Password  string
	UserAgent string
	Timeouts  map[domain.Marketplace]time.Duration
	Default   time.Duration
}

type Structured struct {
	cfg StructuredConfig
	hc  *http.Client
}

func NewStructured(cfg StructuredConfig) *Structured {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pricehunt/1.0 (+local)"
	}
	if cfg.Default <= 0 {
		cfg.Default = 30 * time.Second
	}
	return &Structured{cfg: cfg, hc: &http.Client{}}
}

func (s *Structured) Name() string { return "structured" }

func (s *Structured) BillingKind() credits.Kind { return credits.KindStructured }

func (s *Structured) timeoutFor(m domain.Marketplace) time.Duration {
	if d, ok := s.cfg.Timeouts[m]; ok && d > 0 {
		return d
	}
	return s.cfg.Default
}

type structuredQuery struct {
	Source  string            `json:"source"`
	Query   string            `json:"query,omitempty"`
	URL     string            `json:"url,omitempty"`
	GeoCode string            `json:"geo_location,omitempty"`
	Parse   bool              `json:"parse"`
	Pages   int               `json:"pages,omitempty"`
	StartAt int               `json:"start_page,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

func (s *Structured) Fetch(ctx context.Context, req domain.ScrapeRequest, target Target) ([]byte, Meta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeoutFor(req.Marketplace))
	defer cancel()

	q := structuredQuery{
		Source:  target.Source,
		Query:   req.Query,
		URL:     target.URL,
		GeoCode: req.Region,
		Parse:   true,
		Context: target.Params,
	}
	if req.Page > 1 {
		q.StartAt = req.Page
	}
	if req.PageCount > 0 {
		q.Pages = req.PageCount
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, Meta{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, Meta{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)
	httpReq.SetBasicAuth(s.cfg.Username, s.cfg.Password)

	start := time.Now()
	res, err := s.hc.Do(httpReq)
	if err != nil {
		return nil, Meta{Latency: time.Since(start)}, fmt.Errorf("structured post: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	meta := Meta{
		StatusCode: res.StatusCode,
		Latency:    time.Since(start),
		RetryAfter: retryAfter(res.Header),
	}
	if err != nil {
		return nil, meta, fmt.Errorf("structured read body: %w", err)
	}
	return body, meta, nil
}

// PageParam renders a 1-based page number for URL building.
func PageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}
