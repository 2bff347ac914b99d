package httpapi

import "pricehunt-engine/internal/domain"

// ScrapeResponse is the wire shape of one scrape outcome.
type ScrapeResponse struct {
	Marketplace string           `json:"marketplace"`
	Query       string           `json:"query"`
	Success     bool             `json:"success"`
	Products    []domain.Product `json:"products"`
	Errors      []string         `json:"errors,omitempty"`
	Source      string           `json:"source,omitempty"`
	FromCache   bool             `json:"from_cache"`
}

func toScrapeResponse(market domain.Marketplace, query string, out domain.ScrapeOutcome) ScrapeResponse {
	products := out.Products
	if products == nil {
		products = []domain.Product{}
	}
	return ScrapeResponse{
		Marketplace: market.String(),
		Query:       query,
		Success:     out.Success,
		Products:    products,
		Errors:      out.Errors,
		Source:      out.SourceUsed,
		FromCache:   out.FromCache,
	}
}

// UsageResponse reports billing-unit consumption for one monthly period.
type UsageResponse struct {
	Period  string `json:"period"`
	Credits int64  `json:"credits"`
	Known   bool   `json:"known"`
}
