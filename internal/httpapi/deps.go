package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"pricehunt-engine/internal/config"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/events"
	"pricehunt-engine/internal/registry"
	"pricehunt-engine/internal/store"
)

type Deps struct {
	DB *store.DB

	Hub *events.Hub

	// Atomic store for config.Config, shared with the reload path.
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Scrape entrypoints (inject for testability)
	RunSearch    func(ctx context.Context, market domain.Marketplace, query string, opts registry.Options) (domain.ScrapeOutcome, error)
	RunSearchAll func(ctx context.Context, query string, markets []domain.Marketplace, opts registry.Options) map[domain.Marketplace]domain.ScrapeOutcome
	RunProduct   func(ctx context.Context, market domain.Marketplace, id string, opts registry.Options) (domain.ScrapeOutcome, error)

	ScrapeStatus func() registry.Status
	InBlackout   func(market domain.Marketplace) bool

	// Credit accounting
	Usage         func(ctx context.Context, period string) (int64, bool, error)
	CurrentPeriod func() string

	// Persisted per-marketplace aggregates
	StatsSince func(ctx context.Context, cutoff time.Time) ([]store.MarketStats, error)

	// Prometheus exposition, prebuilt from the collectors' registry.
	MetricsHandler http.Handler
}
