package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/registry"
)

type SearchHandler struct {
	RunSearch    func(ctx context.Context, market domain.Marketplace, query string, opts registry.Options) (domain.ScrapeOutcome, error)
	RunSearchAll func(ctx context.Context, query string, markets []domain.Marketplace, opts registry.Options) map[domain.Marketplace]domain.ScrapeOutcome
	RunProduct   func(ctx context.Context, market domain.Marketplace, id string, opts registry.Options) (domain.ScrapeOutcome, error)
	Status       func() registry.Status
	InBlackout   func(market domain.Marketplace) bool
}

// Search handles GET /api/search?market=amazon&q=laptop&page=1.
func (h SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	market, ok := parseMarket(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_query", "q is required")
		return
	}

	out, err := h.RunSearch(r.Context(), market, query, optionsFromQuery(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "scrape_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, toScrapeResponse(market, query, out))
}

// Product handles GET /api/product?market=amazon&id=B0ABC123.
func (h SearchHandler) Product(w http.ResponseWriter, r *http.Request) {
	market, ok := parseMarket(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_id", "id is required")
		return
	}

	out, err := h.RunProduct(r.Context(), market, id, optionsFromQuery(r))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "scrape_failed", err.Error())
		return
	}
	status := http.StatusOK
	if !out.Success {
		status = http.StatusNotFound
	}
	WriteJSON(w, status, toScrapeResponse(market, id, out))
}

type searchAllRequest struct {
	Query    string   `json:"query"`
	Markets  []string `json:"markets,omitempty"`
	Page     int      `json:"page,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	SortBy   string   `json:"sort_by,omitempty"`
	MinPrice float64  `json:"min_price,omitempty"`
	MaxPrice float64  `json:"max_price,omitempty"`
	CacheTTL int      `json:"cache_ttl_seconds,omitempty"`
}

// SearchAll handles POST /api/search/all with a JSON body.
func (h SearchHandler) SearchAll(w http.ResponseWriter, r *http.Request) {
	var req searchAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Query == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_query", "query is required")
		return
	}

	var markets []domain.Marketplace
	for _, name := range req.Markets {
		m, err := domain.ParseMarketplace(name)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "unknown_marketplace", err.Error())
			return
		}
		markets = append(markets, m)
	}

	opts := registry.Options{
		Page:     req.Page,
		Limit:    req.Limit,
		SortBy:   req.SortBy,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		CacheTTL: time.Duration(req.CacheTTL) * time.Second,
	}
	results := h.RunSearchAll(r.Context(), req.Query, markets, opts)

	resp := make(map[string]ScrapeResponse, len(results))
	for m, out := range results {
		resp[m.String()] = toScrapeResponse(m, req.Query, out)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Statusz handles GET /api/status.
func (h SearchHandler) Statusz(w http.ResponseWriter, r *http.Request) {
	st := h.Status()

	blackouts := []string{}
	for _, m := range domain.Marketplaces() {
		if h.InBlackout(m) {
			blackouts = append(blackouts, m.String())
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"scrape":    st,
		"blackouts": blackouts,
	})
}

func parseMarket(w http.ResponseWriter, r *http.Request) (domain.Marketplace, bool) {
	name := r.URL.Query().Get("market")
	if name == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_marketplace", "market is required")
		return "", false
	}
	m, err := domain.ParseMarketplace(name)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "unknown_marketplace", err.Error())
		return "", false
	}
	return m, true
}

func optionsFromQuery(r *http.Request) registry.Options {
	q := r.URL.Query()
	opts := registry.Options{
		Region: q.Get("region"),
		SortBy: q.Get("sort"),
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.ParseFloat(q.Get("min_price"), 64); err == nil {
		opts.MinPrice = v
	}
	if v, err := strconv.ParseFloat(q.Get("max_price"), 64); err == nil {
		opts.MaxPrice = v
	}
	if v, err := strconv.Atoi(q.Get("cache_ttl")); err == nil && v > 0 {
		opts.CacheTTL = time.Duration(v) * time.Second
	}
	return opts
}
