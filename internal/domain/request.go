package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Operation distinguishes the two logical scrape operations.
type Operation string

const (
	OpSearch  Operation = "search"
	OpProduct Operation = "product"
)

// ScrapeRequest describes one logical scrape operation. Construct per call;
// never mutate after creation.
type ScrapeRequest struct {
	Marketplace Marketplace
	Op          Operation
	Query       string // search term, or product id for OpProduct
	Page        int
	PageCount   int
	Limit       int
	Region      string // geo/country code, e.g. "us"
	SortBy      string
	MinPrice    float64
	MaxPrice    float64
	CacheTTL    time.Duration // 0 disables caching
}

// CacheKey returns a deterministic key for the request, used to store and
// look up normalized results.
func (r ScrapeRequest) CacheKey() string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%d|%s|%s|%.2f|%.2f",
		r.Marketplace, r.Op, r.Query, r.Page, r.PageCount, r.Limit,
		r.Region, r.SortBy, r.MinPrice, r.MaxPrice)
	return "scrape:" + hex.EncodeToString(h.Sum(nil))
}
