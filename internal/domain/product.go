package domain

import "time"

// Product is the canonical normalized record returned to all callers,
// regardless of which marketplace or backend produced the raw data.
type Product struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Price         float64     `json:"price"`
	Currency      string      `json:"currency"`
	OriginalPrice float64     `json:"original_price,omitempty"` // only set when > Price
	ImageURL      string      `json:"image_url,omitempty"`
	ProductURL    string      `json:"product_url"`
	Rating        float64     `json:"rating,omitempty"` // 0-5
	ReviewCount   int         `json:"review_count,omitempty"`
	Seller        string      `json:"seller,omitempty"`
	Availability  string      `json:"availability,omitempty"`
	Sponsored     bool        `json:"sponsored"`
	Marketplace   Marketplace `json:"marketplace"`
	CapturedAt    time.Time   `json:"captured_at"`
}

// ScrapeOutcome is the result of one logical scrape operation. It is built
// once by the fetch engine and immutable afterwards.
type ScrapeOutcome struct {
	Success    bool      `json:"success"`
	Products   []Product `json:"products"`
	Errors     []string  `json:"errors,omitempty"`
	SourceUsed string    `json:"source_used,omitempty"`
	FromCache  bool      `json:"from_cache,omitempty"`
	Raw        []byte    `json:"-"` // raw backend payload, kept for diagnostics
}

// MetricsSample is one success/failure observation for a marketplace.
// Samples live only inside the batch buffer until flushed.
type MetricsSample struct {
	Marketplace Marketplace
	Success     bool
	Duration    time.Duration
	Error       string
	At          time.Time
}
