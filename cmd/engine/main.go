package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricehunt-engine/internal/backend"
	"pricehunt-engine/internal/cache"
	"pricehunt-engine/internal/config"
	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/events"
	"pricehunt-engine/internal/fetch"
	"pricehunt-engine/internal/httpapi"
	"pricehunt-engine/internal/metrics"
	"pricehunt-engine/internal/normalize"
	"pricehunt-engine/internal/ratelimit"
	"pricehunt-engine/internal/registry"
	"pricehunt-engine/internal/scheduler"
	"pricehunt-engine/internal/secrets"
	"pricehunt-engine/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("engine exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	dataDir := os.Getenv("PRICEHUNT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// One engine per data dir; a second instance would fight over sqlite.
	lock, err := store.AcquireLock(dataDir)
	if err != nil {
		return fmt.Errorf("acquire data dir lock: %w", err)
	}
	defer lock.Unlock()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}

	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.OverlayEnv(&cfg)
		overlayKeyring(&cfg)
		normalized, vr := config.NormalizeAndValidate(cfg)
		if !vr.OK() {
			return cfg, fmt.Errorf("invalid config: %s", strings.Join(vr.Errors, "; "))
		}
		for _, warn := range vr.Warnings {
			slog.Warn("config", slog.String("warning", warn))
		}
		return normalized, nil
	}

	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "pricehunt.db"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink metrics.Sink
	if cfg.Metrics.PostgresDSN != "" {
		pg, err := store.NewPGSink(ctx, cfg.Metrics.PostgresDSN, cfg.Metrics.PostgresSchema)
		if err != nil {
			return fmt.Errorf("postgres sink: %w", err)
		}
		defer pg.Close()
		sink = pg
		slog.Info("metrics sink", slog.String("kind", "postgres"))
	} else {
		sink = &store.MetricsSink{DB: db.Pool}
		slog.Info("metrics sink", slog.String("kind", "sqlite"))
	}

	batcher := metrics.NewBatcher(sink, cfg.Metrics.BatchSize)
	prom := metrics.NewCollectors()
	tracker := credits.NewTracker(&store.Counters{DB: db.Pool})

	limiter := ratelimit.New(limiterConfig(cfg))
	cacheStore := cache.NewLRU(cfg.Cache.Size, cfg.Cache.MaxTTL)
	normalizer := normalize.New(cfg.Normalize.StrictPricing)

	proxy := backend.NewProxy(backend.ProxyConfig{
		BaseURL:  cfg.Backends.Proxy.BaseURL,
		APIKey:   cfg.Backends.Proxy.APIKey,
		Timeouts: marketTimeouts(cfg),
	})
	structured := backend.NewStructured(backend.StructuredConfig{
		BaseURL:  cfg.Backends.Structured.BaseURL,
		Username: cfg.Backends.Structured.Username,
		Password: cfg.Backends.Structured.Password,
		Timeouts: marketTimeouts(cfg),
	})

	engine := fetch.NewEngine(fetch.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
		BackoffMax:  cfg.Retry.BackoffMax,
	}, limiter, batcher, prom, tracker, normalizer, cacheStore)

	hub := events.NewHub()
	reg := registry.New(cfg, registry.Deps{
		Engine: engine,
		Sources: map[string]backend.Source{
			proxy.Name():      proxy,
			structured.Name(): structured,
		},
		Hub:         hub,
		Limiter:     limiter,
		MaxInFlight: cfg.Limits.MaxConcurrent,
	})

	flushInterval := cfg.Metrics.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}
	go scheduler.Every(ctx, flushInterval, "metrics_flush", func(context.Context) error {
		batcher.Flush()
		return nil
	})

	sqliteSink, _ := sink.(*store.MetricsSink)
	mux := httpapi.NewMux(httpapi.Deps{
		DB:             db,
		Hub:            hub,
		CfgVal:         &cfgVal,
		UserCfgPath:    userCfgPath,
		LoadCfg:        loadCfg,
		RunSearch:      reg.Search,
		RunSearchAll:   reg.SearchAll,
		RunProduct:     reg.Product,
		ScrapeStatus:   reg.Status,
		InBlackout:     limiter.InBlackout,
		Usage:          tracker.Usage,
		CurrentPeriod:  tracker.CurrentPeriod,
		StatsSince:     statsFn(sqliteSink),
		MetricsHandler: promhttp.HandlerFor(prom.Registry, promhttp.HandlerOpts{}),
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("engine listening", slog.String("addr", "http://"+addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", slog.Any("err", err))
	}

	// Drain pending samples before the sinks close.
	batcher.Close()
	return nil
}

// overlayKeyring fills credentials the file and env left empty from the OS
// keyring.
func overlayKeyring(cfg *config.Config) {
	if cfg.Backends.Proxy.APIKey == "" {
		if v, err := secrets.Get(secrets.AccountProxyAPIKey); err == nil {
			cfg.Backends.Proxy.APIKey = v
		}
	}
	if cfg.Backends.Structured.Password == "" {
		if v, err := secrets.Get(secrets.AccountStructuredPassword); err == nil {
			cfg.Backends.Structured.Password = v
		}
	}
}

func limiterConfig(cfg config.Config) ratelimit.Config {
	perMarket := make(map[domain.Marketplace]int, len(cfg.Markets))
	for name, mc := range cfg.Markets {
		if m := domain.Marketplace(name); m.Valid() && mc.RequestsPerSec > 0 {
			perMarket[m] = mc.RequestsPerSec
		}
	}
	return ratelimit.Config{
		PerMarket:        perMarket,
		FailureThreshold: cfg.Limits.FailureThreshold,
		Blackout:         cfg.Limits.Blackout,
		GlobalPerSecond:  cfg.Limits.GlobalPerSec,
	}
}

func marketTimeouts(cfg config.Config) map[domain.Marketplace]time.Duration {
	out := make(map[domain.Marketplace]time.Duration, len(cfg.Markets))
	for name, mc := range cfg.Markets {
		if m := domain.Marketplace(name); m.Valid() && mc.Timeout > 0 {
			out[m] = mc.Timeout
		}
	}
	return out
}

func statsFn(sink *store.MetricsSink) func(context.Context, time.Time) ([]store.MarketStats, error) {
	if sink == nil {
		return func(context.Context, time.Time) ([]store.MarketStats, error) {
			return nil, nil
		}
	}
	return sink.StatsSince
}
