// Package ratelimit admits or defers scrape requests per marketplace.
//
// Two layers gate every request: a process-wide token bucket shared by all
// marketplaces, and a per-marketplace sliding one-second window with its own
// request budget. A consecutive-failure breaker puts a marketplace into a
// temporary blackout after repeated errors.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"pricehunt-engine/internal/domain"
)

type Verdict int

const (
	Proceed Verdict = iota
	Wait
	Blocked
)

// Decision is the outcome of an Admit call.
type Decision struct {
	Verdict Verdict
	Delay   time.Duration // set when Verdict == Wait
	Until   time.Time     // set when Verdict == Blocked (blackout end)
	Reason  string        // set when Verdict == Blocked
}

// Config tunes the limiter. Zero values fall back to defaults.
type Config struct {
	Window           time.Duration                  // sliding window size
	DefaultPerWindow int                            // per-marketplace budget
	PerMarket        map[domain.Marketplace]int     // overrides
	FailureThreshold int                            // consecutive failures before blackout
	Blackout         time.Duration                  // blackout length
	GlobalPerSecond  float64                        // all marketplaces combined
	GlobalBurst      int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = time.Second
	}
	if c.DefaultPerWindow <= 0 {
		c.DefaultPerWindow = 4
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Blackout <= 0 {
		c.Blackout = 5 * time.Minute
	}
	if c.GlobalPerSecond <= 0 {
		c.GlobalPerSecond = 20
	}
	if c.GlobalBurst <= 0 {
		c.GlobalBurst = int(c.GlobalPerSecond)
	}
	return c
}

type marketState struct {
	stamps       []time.Time
	limit        int
	consecFails  int
	blackoutOver time.Time
}

// Limiter tracks per-marketplace windows plus the global budget.
type Limiter struct {
	cfg    Config
	global *rate.Limiter

	mu sync.Mutex
	m  map[domain.Marketplace]*marketState

	now func() time.Time // swapped in tests
}

func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	return &Limiter{
		cfg:    cfg,
		global: rate.NewLimiter(rate.Limit(cfg.GlobalPerSecond), cfg.GlobalBurst),
		m:      make(map[domain.Marketplace]*marketState),
		now:    time.Now,
	}
}

func (l *Limiter) stateFor(market domain.Marketplace) *marketState {
	if st, ok := l.m[market]; ok {
		return st
	}
	limit := l.cfg.DefaultPerWindow
	if v, ok := l.cfg.PerMarket[market]; ok && v > 0 {
		limit = v
	}
	st := &marketState{limit: limit}
	l.m[market] = st
	return st
}

// Admit decides whether a request for market may go out now. A Proceed
// verdict consumes one slot in both the global and per-marketplace budgets.
// Wait verdicts consume nothing; the caller sleeps and calls Admit again.
func (l *Limiter) Admit(market domain.Marketplace) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.stateFor(market)

	if now.Before(st.blackoutOver) {
		return Decision{
			Verdict: Blocked,
			Until:   st.blackoutOver,
			Reason:  fmt.Sprintf("%s blacked out until %s", market, st.blackoutOver.Format(time.RFC3339)),
		}
	}

	// Global budget first: all marketplaces combined.
	res := l.global.ReserveN(now, 1)
	if !res.OK() {
		return Decision{Verdict: Wait, Delay: time.Second}
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return Decision{Verdict: Wait, Delay: d}
	}

	// Per-marketplace sliding window.
	cutoff := now.Add(-l.cfg.Window)
	keep := st.stamps[:0]
	for _, ts := range st.stamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	st.stamps = keep

	if len(st.stamps) >= st.limit {
		res.CancelAt(now)
		wait := st.stamps[0].Add(l.cfg.Window).Sub(now)
		if wait <= 0 {
			wait = time.Millisecond
		}
		return Decision{Verdict: Wait, Delay: wait}
	}

	st.stamps = append(st.stamps, now)
	return Decision{Verdict: Proceed}
}

// RecordOutcome feeds the circuit breaker. A single success resets the
// consecutive-failure counter; reaching the threshold starts a blackout.
func (l *Limiter) RecordOutcome(market domain.Marketplace, success bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.stateFor(market)
	if success {
		st.consecFails = 0
		return
	}
	st.consecFails++
	if st.consecFails >= l.cfg.FailureThreshold {
		st.blackoutOver = now.Add(l.cfg.Blackout)
		st.consecFails = 0
	}
}

// InBlackout reports whether market is currently refused all requests.
func (l *Limiter) InBlackout(market domain.Marketplace) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now().Before(l.stateFor(market).blackoutOver)
}
