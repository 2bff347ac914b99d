package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memCounter struct {
	mu   sync.Mutex
	m    map[string]int64
	fail bool
}

func (c *memCounter) Increment(_ context.Context, key string, amount int64) error {
	if c.fail {
		return errors.New("store down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]int64)
	}
	c.m[key] += amount
	return nil
}

func (c *memCounter) Get(_ context.Context, key string) (int64, bool, error) {
	if c.fail {
		return 0, false, errors.New("store down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func TestRecordBillsByKind(t *testing.T) {
	store := &memCounter{}
	tr := NewTracker(store)
	tr.now = func() time.Time { return time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	tr.Record(ctx, KindStructured)
	tr.Record(ctx, KindStructured)
	tr.Record(ctx, KindProxy)

	got, ok, err := tr.Usage(ctx, "2026-09")
	if err != nil || !ok {
		t.Fatalf("usage err=%v ok=%v", err, ok)
	}
	if got != 11 {
		t.Fatalf("usage = %d, want 11 (2*5 + 1)", got)
	}
}

func TestUsageUnknownPeriod(t *testing.T) {
	tr := NewTracker(&memCounter{})
	_, ok, err := tr.Usage(context.Background(), "1999-01")
	if err != nil {
		t.Fatalf("usage err = %v", err)
	}
	if ok {
		t.Fatal("ok = true for untracked period")
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	tr := NewTracker(&memCounter{fail: true})
	// Must not panic or block.
	tr.Record(context.Background(), KindProxy)
}

func TestPeriodKey(t *testing.T) {
	got := PeriodKey(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC))
	if got != "2026-01" {
		t.Fatalf("period = %q, want 2026-01", got)
	}
}
