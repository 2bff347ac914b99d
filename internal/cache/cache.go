// Package cache holds normalized scrape results keyed by request hash.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pricehunt-engine/internal/domain"
)

// Store is the response-cache collaborator. External implementations (e.g.
// redis) provide their own atomicity; the in-process default lives below.
type Store interface {
	Get(ctx context.Context, key string) ([]domain.Product, bool)
	Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type entry struct {
	products []domain.Product
	expires  time.Time
}

// LRU is an in-process bounded cache. The expirable LRU evicts on capacity
// and on a hard upper TTL; per-entry TTLs shorter than the hard cap are
// enforced on read.
type LRU struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewLRU caps the cache at size entries and maxTTL lifetime.
func NewLRU(size int, maxTTL time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}
	return &LRU{
		lru: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (c *LRU) Get(_ context.Context, key string) ([]domain.Product, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.products, true
}

func (c *LRU) Set(_ context.Context, key string, products []domain.Product, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lru.Add(key, entry{products: products, expires: c.now().Add(ttl)})
}

func (c *LRU) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}
