// Package fetch executes one logical scrape operation against a primary
// backend source, retrying transient failures with exponential backoff and
// falling back to a secondary source when the primary is exhausted.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricehunt-engine/internal/backend"
	"pricehunt-engine/internal/cache"
	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/metrics"
	"pricehunt-engine/internal/normalize"
	"pricehunt-engine/internal/ratelimit"
)

// Config tunes retry behavior. Zero values fall back to defaults.
type Config struct {
	MaxAttempts int           // per source, including the first try
	BackoffBase time.Duration // 1s, doubled per retry
	BackoffMax  time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 30 * time.Second
	}
	return c
}

// Engine coordinates admission, attempts, classification, and fallback.
type Engine struct {
	cfg        Config
	limiter    *ratelimit.Limiter
	batcher    *metrics.Batcher
	prom       *metrics.Collectors
	credits    *credits.Tracker
	normalizer *normalize.Normalizer
	cache      cache.Store

	sleep func(ctx context.Context, d time.Duration) error
}

func NewEngine(cfg Config, limiter *ratelimit.Limiter, batcher *metrics.Batcher, prom *metrics.Collectors, tracker *credits.Tracker, normalizer *normalize.Normalizer, cacheStore cache.Store) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		limiter:    limiter,
		batcher:    batcher,
		prom:       prom,
		credits:    tracker,
		normalizer: normalizer,
		cache:      cacheStore,
		sleep:      sleepCtx,
	}
}

// Execute runs the full primary-then-fallback attempt sequence and always
// returns a well-formed outcome; expected failure modes land in
// outcome.Errors, never as a returned error.
func (e *Engine) Execute(ctx context.Context, req domain.ScrapeRequest, primary, fallback backend.Source, target backend.Target) domain.ScrapeOutcome {
	if req.CacheTTL > 0 && e.cache != nil {
		if products, ok := e.cache.Get(ctx, req.CacheKey()); ok {
			e.prom.IncCacheHit()
			return domain.ScrapeOutcome{
				Success:    true,
				Products:   products,
				SourceUsed: "cache",
				FromCache:  true,
			}
		}
	}

	outcome := e.trySource(ctx, req, primary, target)
	if outcome.result == resTransientExhausted && fallback != nil {
		e.prom.IncFallback(req.Marketplace.String())
		slog.Info("falling back to secondary source",
			slog.String("marketplace", req.Marketplace.String()),
			slog.String("primary", primary.Name()),
			slog.String("fallback", fallback.Name()),
		)
		fb := e.trySource(ctx, req, fallback, target)
		fb.ScrapeOutcome.Errors = append(outcome.ScrapeOutcome.Errors, fb.ScrapeOutcome.Errors...)
		outcome = fb
	}

	if outcome.Success && req.CacheTTL > 0 && e.cache != nil && !outcome.FromCache {
		e.cache.Set(ctx, req.CacheKey(), outcome.Products, req.CacheTTL)
	}
	return outcome.ScrapeOutcome
}

type result int

const (
	resOK result = iota
	resTransientExhausted
	resFatal
)

type sourceOutcome struct {
	domain.ScrapeOutcome
	result result
}

func (e *Engine) trySource(ctx context.Context, req domain.ScrapeRequest, src backend.Source, target backend.Target) sourceOutcome {
	var errs []string

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.prom.IncRetry(req.Marketplace.String())
		}

		if ok, err := e.awaitAdmission(ctx, req.Marketplace); !ok {
			errs = append(errs, err.Error())
			e.prom.IncError(domain.ErrorTypeLabel(err))
			return sourceOutcome{
				ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
				result:        resFatal,
			}
		}

		raw, meta, fetchErr := src.Fetch(ctx, req, target)
		if fetchErr == nil || meta.StatusCode > 0 {
			// the call reached the backend, so it bills
			e.credits.Record(ctx, src.BillingKind())
		}

		k, classErr := classify(fetchErr, meta.StatusCode)
		// a 404 on a search is a served empty result set, not a backend
		// failure; it must not feed the breaker or flush a failure sample
		success := k == kindOK || (k == kindNotFound && req.Op == domain.OpSearch)
		attemptErr := classErr
		if success {
			attemptErr = nil
		}
		e.recordAttempt(req.Marketplace, success, meta.Latency, attemptErr)

		switch k {
		case kindOK:
			return e.buildSuccess(req, src, raw, errs)

		case kindNotFound:
			if req.Op == domain.OpSearch {
				// no results is a valid answer for a search
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{
						Success:    true,
						Products:   []domain.Product{},
						Errors:     errs,
						SourceUsed: src.Name(),
					},
					result: resOK,
				}
			}
			errs = append(errs, classErr.Error())
			e.prom.IncError(domain.ErrorTypeLabel(classErr))
			return sourceOutcome{
				ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
				result:        resFatal,
			}

		case kindAuth:
			errs = append(errs, classErr.Error())
			e.prom.IncError(domain.ErrorTypeLabel(classErr))
			return sourceOutcome{
				ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
				result:        resFatal,
			}

		case kindRateLimited:
			errs = append(errs, classErr.Error())
			if attempt == e.cfg.MaxAttempts {
				e.prom.IncError(domain.ErrorTypeLabel(classErr))
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resFatal,
				}
			}
			delay := meta.RetryAfter
			if delay <= 0 {
				delay = e.backoff(attempt)
			}
			if err := e.sleep(ctx, delay); err != nil {
				errs = append(errs, err.Error())
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resFatal,
				}
			}

		case kindTransient:
			errs = append(errs, classErr.Error())
			if attempt == e.cfg.MaxAttempts {
				e.prom.IncError(domain.ErrorTypeLabel(classErr))
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resTransientExhausted,
				}
			}
			if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
				errs = append(errs, err.Error())
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resFatal,
				}
			}

		case kindUnexpected:
			errs = append(errs, classErr.Error())
			if attempt >= 2 {
				e.prom.IncError("other")
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resFatal,
				}
			}
			// one retry for the unexpected, then permanent
			if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
				errs = append(errs, err.Error())
				return sourceOutcome{
					ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
					result:        resFatal,
				}
			}
		}
	}

	return sourceOutcome{
		ScrapeOutcome: domain.ScrapeOutcome{Errors: errs, SourceUsed: src.Name()},
		result:        resTransientExhausted,
	}
}

func (e *Engine) buildSuccess(req domain.ScrapeRequest, src backend.Source, raw []byte, errs []string) sourceOutcome {
	products, notes, normErr := e.normalizer.Normalize(req.Marketplace, raw)
	errs = append(errs, notes...)
	if normErr != nil {
		// unrecognized payload degrades to an empty-result success
		errs = append(errs, normErr.Error())
		e.prom.IncError(domain.ErrorTypeLabel(normErr))
		products = []domain.Product{}
	}
	if req.Op == domain.OpProduct && len(products) == 0 && normErr == nil {
		notFound := domain.ErrNotFound{Err: fmt.Errorf("product %q not in backend response", req.Query)}
		errs = append(errs, notFound.Error())
		e.prom.IncError(domain.ErrorTypeLabel(notFound))
		return sourceOutcome{
			ScrapeOutcome: domain.ScrapeOutcome{
				Errors:     errs,
				SourceUsed: src.Name(),
				Raw:        raw,
			},
			result: resFatal,
		}
	}
	e.prom.AddProducts(req.Marketplace.String(), len(products))
	return sourceOutcome{
		ScrapeOutcome: domain.ScrapeOutcome{
			Success:    true,
			Products:   products,
			Errors:     errs,
			SourceUsed: src.Name(),
			Raw:        raw,
		},
		result: resOK,
	}
}

// awaitAdmission loops on the limiter until a Proceed, honoring Wait delays
// and failing fast on a Blocked marketplace.
func (e *Engine) awaitAdmission(ctx context.Context, market domain.Marketplace) (bool, error) {
	for {
		d := e.limiter.Admit(market)
		switch d.Verdict {
		case ratelimit.Proceed:
			return true, nil
		case ratelimit.Wait:
			if err := e.sleep(ctx, d.Delay); err != nil {
				return false, err
			}
		case ratelimit.Blocked:
			return false, domain.ErrRateLimited{
				Err:        fmt.Errorf("%s", d.Reason),
				RetryAfter: time.Until(d.Until),
			}
		}
	}
}

func (e *Engine) recordAttempt(market domain.Marketplace, success bool, latency time.Duration, attemptErr error) {
	e.limiter.RecordOutcome(market, success)

	errText := ""
	if attemptErr != nil {
		errText = attemptErr.Error()
	}
	e.batcher.Record(domain.MetricsSample{
		Marketplace: market,
		Success:     success,
		Duration:    latency,
		Error:       errText,
	})
	e.prom.ObserveRequest(market.String(), success, latency)
}

func (e *Engine) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.cfg.BackoffBase * time.Duration(1<<(attempt-1))
	if d > e.cfg.BackoffMax {
		d = e.cfg.BackoffMax
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
