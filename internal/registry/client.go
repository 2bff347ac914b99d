package registry

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"pricehunt-engine/internal/backend"
	"pricehunt-engine/internal/config"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/fetch"
)

// Options carries the caller-tunable knobs of one scrape call. The zero
// value means "first page, marketplace defaults".
type Options struct {
	Page      int
	PageCount int
	Limit     int
	Region    string
	SortBy    string
	MinPrice  float64
	MaxPrice  float64
	CacheTTL  time.Duration
}

// Client scrapes one marketplace. Build through Registry.Client so each
// marketplace gets exactly one instance.
type Client struct {
	market   domain.Marketplace
	cfg      config.MarketConfig
	engine   *fetch.Engine
	primary  backend.Source
	fallback backend.Source
}

func newClient(market domain.Marketplace, cfg config.MarketConfig, engine *fetch.Engine, sources map[string]backend.Source) (*Client, error) {
	primary, ok := sources[cfg.PrimarySource]
	if !ok {
		return nil, fmt.Errorf("%s: unknown primary source %q", market, cfg.PrimarySource)
	}
	var fallback backend.Source
	if cfg.FallbackSource != "" {
		fallback, ok = sources[cfg.FallbackSource]
		if !ok {
			return nil, fmt.Errorf("%s: unknown fallback source %q", market, cfg.FallbackSource)
		}
	}
	return &Client{
		market:   market,
		cfg:      cfg,
		engine:   engine,
		primary:  primary,
		fallback: fallback,
	}, nil
}

func (c *Client) Marketplace() domain.Marketplace { return c.market }

// Search scrapes one page of search results for the query.
func (c *Client) Search(ctx context.Context, query string, opts Options) domain.ScrapeOutcome {
	req := c.request(domain.OpSearch, query, opts)
	return c.engine.Execute(ctx, req, c.primary, c.fallback, c.searchTarget(req))
}

// Product scrapes a single product page by marketplace-native id.
func (c *Client) Product(ctx context.Context, id string, opts Options) domain.ScrapeOutcome {
	req := c.request(domain.OpProduct, id, opts)
	return c.engine.Execute(ctx, req, c.primary, c.fallback, c.detailTarget(req))
}

func (c *Client) request(op domain.Operation, query string, opts Options) domain.ScrapeRequest {
	region := opts.Region
	if region == "" {
		region = c.cfg.Region
	}
	return domain.ScrapeRequest{
		Marketplace: c.market,
		Op:          op,
		Query:       query,
		Page:        opts.Page,
		PageCount:   opts.PageCount,
		Limit:       opts.Limit,
		Region:      region,
		SortBy:      opts.SortBy,
		MinPrice:    opts.MinPrice,
		MaxPrice:    opts.MaxPrice,
		CacheTTL:    opts.CacheTTL,
	}
}

// searchTarget builds both addressing modes at once: the concrete page URL
// for the proxy source and the provider source name for the structured one.
// Whichever source runs picks the field it understands.
func (c *Client) searchTarget(req domain.ScrapeRequest) backend.Target {
	u := fmt.Sprintf(c.cfg.SearchURLFormat, url.QueryEscape(req.Query))
	if req.Page > 1 {
		u += "&page=" + backend.PageParam(req.Page)
	}
	params := map[string]string{}
	if req.SortBy != "" {
		params["sort_by"] = req.SortBy
	}
	if req.MinPrice > 0 {
		params["min_price"] = fmt.Sprintf("%.2f", req.MinPrice)
	}
	if req.MaxPrice > 0 {
		params["max_price"] = fmt.Sprintf("%.2f", req.MaxPrice)
	}
	return backend.Target{
		URL:    u,
		Source: c.cfg.StructuredName,
		Params: params,
	}
}

func (c *Client) detailTarget(req domain.ScrapeRequest) backend.Target {
	return backend.Target{
		URL:    fmt.Sprintf(c.cfg.DetailURLFormat, url.PathEscape(req.Query)),
		Source: detailSourceName(c.cfg.StructuredName),
	}
}

// detailSourceName derives the product-page provider source from the search
// one, e.g. "amazon_search" -> "amazon_product".
func detailSourceName(searchSource string) string {
	const suffix = "_search"
	if n := len(searchSource) - len(suffix); n > 0 && searchSource[n:] == suffix {
		return searchSource[:n] + "_product"
	}
	return searchSource
}
