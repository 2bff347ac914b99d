// Package credits tracks billed scrape operations against a monthly counter.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind is the billed operation class. Structured e-commerce calls cost more
// than plain proxy fetches.
type Kind string

const (
	KindStructured Kind = "structured"
	KindProxy      Kind = "proxy"
)

// Cost returns the credit units billed for one call of this kind.
func (k Kind) Cost() int64 {
	if k == KindStructured {
		return 5
	}
	return 1
}

// CounterStore is the external counter collaborator. Increments must be
// atomic on the store side.
type CounterStore interface {
	Increment(ctx context.Context, key string, amount int64) error
	Get(ctx context.Context, key string) (int64, bool, error)
}

// Tracker increments and reads the per-period usage counter. Store failures
// degrade to a logged warning and never block the scrape operation.
type Tracker struct {
	store CounterStore
	now   func() time.Time
}

func NewTracker(store CounterStore) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// PeriodKey formats a billing period, e.g. "2026-09".
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func counterKey(period string) string {
	return fmt.Sprintf("credits:%s", period)
}

// Record bills one operation of the given kind against the current period.
func (t *Tracker) Record(ctx context.Context, kind Kind) {
	if t == nil || t.store == nil {
		return
	}
	period := PeriodKey(t.now())
	if err := t.store.Increment(ctx, counterKey(period), kind.Cost()); err != nil {
		slog.Warn("credit usage not recorded",
			slog.String("period", period),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}
}

// Usage returns the billed units for a period. The bool is false when the
// period has no counter yet.
func (t *Tracker) Usage(ctx context.Context, period string) (int64, bool, error) {
	if t == nil || t.store == nil {
		return 0, false, nil
	}
	return t.store.Get(ctx, counterKey(period))
}

// CurrentPeriod returns the active billing period key.
func (t *Tracker) CurrentPeriod() string {
	return PeriodKey(t.now())
}
