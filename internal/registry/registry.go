// Package registry hands out per-marketplace scrape clients and runs the
// cross-marketplace fan-out. Clients are built lazily and cached for the
// process lifetime.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pricehunt-engine/internal/backend"
	"pricehunt-engine/internal/config"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/events"
	"pricehunt-engine/internal/fetch"
	"pricehunt-engine/internal/ratelimit"
)

// Status is the last-run snapshot served by the status endpoint.
type Status struct {
	LastRunAt   string         `json:"last_run_at"`
	LastQuery   string         `json:"last_query"`
	LastMarkets []string       `json:"last_markets"`
	Products    int            `json:"products"`
	Failures    map[string]int `json:"failures"`
	Running     bool           `json:"running"`
}

type Deps struct {
	Engine  *fetch.Engine
	Sources map[string]backend.Source // keyed by backend.Source.Name()
	Hub     *events.Hub
	Limiter *ratelimit.Limiter

	// MaxInFlight caps concurrent marketplace scrapes across all callers.
	MaxInFlight int64
}

type Registry struct {
	cfg  config.Config
	deps Deps
	sem  *semaphore.Weighted

	mu      sync.Mutex
	clients map[domain.Marketplace]*Client

	status atomic.Value // Status
}

func New(cfg config.Config, deps Deps) *Registry {
	if deps.MaxInFlight <= 0 {
		deps.MaxInFlight = 4
	}
	r := &Registry{
		cfg:     cfg,
		deps:    deps,
		sem:     semaphore.NewWeighted(deps.MaxInFlight),
		clients: make(map[domain.Marketplace]*Client),
	}
	r.status.Store(Status{Failures: map[string]int{}})
	return r
}

// Client returns the singleton client for the marketplace, building it on
// first use.
func (r *Registry) Client(market domain.Marketplace) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[market]; ok {
		return c, nil
	}
	mc, ok := r.cfg.Markets[market.String()]
	if !ok {
		return nil, fmt.Errorf("marketplace %q not configured", market)
	}
	c, err := newClient(market, mc, r.deps.Engine, r.deps.Sources)
	if err != nil {
		return nil, err
	}
	r.clients[market] = c
	return c, nil
}

// Search runs one marketplace search under the global concurrency cap.
func (r *Registry) Search(ctx context.Context, market domain.Marketplace, query string, opts Options) (domain.ScrapeOutcome, error) {
	c, err := r.Client(market)
	if err != nil {
		return domain.ScrapeOutcome{}, err
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return domain.ScrapeOutcome{}, err
	}
	defer r.sem.Release(1)

	out := c.Search(ctx, query, opts)
	r.publishOutcome(market, domain.OpSearch, query, out)
	return out, nil
}

// Product runs one product-detail scrape under the global concurrency cap.
func (r *Registry) Product(ctx context.Context, market domain.Marketplace, id string, opts Options) (domain.ScrapeOutcome, error) {
	c, err := r.Client(market)
	if err != nil {
		return domain.ScrapeOutcome{}, err
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return domain.ScrapeOutcome{}, err
	}
	defer r.sem.Release(1)

	out := c.Product(ctx, id, opts)
	r.publishOutcome(market, domain.OpProduct, id, out)
	return out, nil
}

// SearchAll fans the query out to every requested marketplace (all
// configured ones when markets is empty) and collects per-marketplace
// outcomes. One marketplace failing never aborts the others.
func (r *Registry) SearchAll(ctx context.Context, query string, markets []domain.Marketplace, opts Options) map[domain.Marketplace]domain.ScrapeOutcome {
	if len(markets) == 0 {
		for _, name := range sortedMarketNames(r.cfg.Markets) {
			if m := domain.Marketplace(name); m.Valid() {
				markets = append(markets, m)
			}
		}
	}

	r.setRunning(query, markets)

	var mu sync.Mutex
	results := make(map[domain.Marketplace]domain.ScrapeOutcome, len(markets))

	g, ctx := errgroup.WithContext(ctx)
	for _, market := range markets {
		market := market
		g.Go(func() error {
			out, err := r.Search(ctx, market, query, opts)
			if err != nil {
				out = domain.ScrapeOutcome{Errors: []string{err.Error()}}
			}
			mu.Lock()
			results[market] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.finishRun(query, markets, results)
	return results
}

// Status returns the last fan-out snapshot.
func (r *Registry) Status() Status {
	return r.status.Load().(Status)
}

func (r *Registry) setRunning(query string, markets []domain.Marketplace) {
	st := Status{
		LastRunAt:   time.Now().UTC().Format(time.RFC3339),
		LastQuery:   query,
		LastMarkets: marketNames(markets),
		Failures:    map[string]int{},
		Running:     true,
	}
	r.status.Store(st)
}

func (r *Registry) finishRun(query string, markets []domain.Marketplace, results map[domain.Marketplace]domain.ScrapeOutcome) {
	st := Status{
		LastRunAt:   time.Now().UTC().Format(time.RFC3339),
		LastQuery:   query,
		LastMarkets: marketNames(markets),
		Failures:    map[string]int{},
	}
	for m, out := range results {
		if out.Success {
			st.Products += len(out.Products)
		} else {
			st.Failures[m.String()] = len(out.Errors)
		}
	}
	r.status.Store(st)
}

func (r *Registry) publishOutcome(market domain.Marketplace, op domain.Operation, query string, out domain.ScrapeOutcome) {
	if r.deps.Hub == nil {
		return
	}
	r.deps.Hub.Publish(events.MakeEvent("", events.TypeScrapeCompleted, 1, map[string]any{
		"marketplace": market.String(),
		"op":          string(op),
		"query":       query,
		"success":     out.Success,
		"products":    len(out.Products),
		"source":      out.SourceUsed,
		"from_cache":  out.FromCache,
	}))
	if !out.Success && r.deps.Limiter != nil && r.deps.Limiter.InBlackout(market) {
		r.deps.Hub.Publish(events.MakeEvent("", events.TypeMarketBlackout, 1, map[string]any{
			"marketplace": market.String(),
		}))
	}
}

func marketNames(markets []domain.Marketplace) []string {
	names := make([]string, 0, len(markets))
	for _, m := range markets {
		names = append(names, m.String())
	}
	return names
}

func sortedMarketNames(m map[string]config.MarketConfig) []string {
	names := make([]string, 0, len(m))
	for _, known := range domain.Marketplaces() {
		if _, ok := m[known.String()]; ok {
			names = append(names, known.String())
		}
	}
	return names
}
