package cache

import (
	"context"
	"testing"
	"time"

	"pricehunt-engine/internal/domain"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := NewLRU(8, time.Hour)
	ctx := context.Background()

	products := []domain.Product{{ID: "p1", Title: "Laptop", Price: 999.99, Marketplace: domain.Amazon}}
	c.Set(ctx, "k1", products, time.Minute)

	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("got %+v", got)
	}
}

func TestPerEntryTTLExpires(t *testing.T) {
	c := NewLRU(8, time.Hour)
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	ctx := context.Background()
	c.Set(ctx, "k", []domain.Product{{ID: "x"}}, 30*time.Second)

	base = base.Add(29 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	base = base.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestZeroTTLNotStored(t *testing.T) {
	c := NewLRU(8, time.Hour)
	ctx := context.Background()
	c.Set(ctx, "k", []domain.Product{{ID: "x"}}, 0)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("zero-ttl entry should not be cached")
	}
}

func TestDelete(t *testing.T) {
	c := NewLRU(8, time.Hour)
	ctx := context.Background()
	c.Set(ctx, "k", []domain.Product{{ID: "x"}}, time.Minute)
	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("entry should be gone after delete")
	}
}
