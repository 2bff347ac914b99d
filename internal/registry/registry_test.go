package registry

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pricehunt-engine/internal/backend"
	"pricehunt-engine/internal/config"
	"pricehunt-engine/internal/credits"
	"pricehunt-engine/internal/domain"
	"pricehunt-engine/internal/events"
	"pricehunt-engine/internal/fetch"
	"pricehunt-engine/internal/metrics"
	"pricehunt-engine/internal/normalize"
	"pricehunt-engine/internal/ratelimit"
)

type fakeSource struct {
	name   string
	status int
	body   string

	mu      sync.Mutex
	targets []backend.Target
}

func (f *fakeSource) Name() string              { return f.name }
func (f *fakeSource) BillingKind() credits.Kind { return credits.KindProxy }

func (f *fakeSource) Fetch(_ context.Context, _ domain.ScrapeRequest, target backend.Target) ([]byte, backend.Meta, error) {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.mu.Unlock()
	status := f.status
	if status == 0 {
		status = 200
	}
	return []byte(f.body), backend.Meta{StatusCode: status, Latency: time.Millisecond}, nil
}

func (f *fakeSource) lastTarget(t *testing.T) backend.Target {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.targets) == 0 {
		t.Fatal("source was never called")
	}
	return f.targets[len(f.targets)-1]
}

const listingBody = `{"results": [{"title": "Laptop", "price": 999.99, "asin": "B01"}]}`

func testRegistry(t *testing.T, sources map[string]backend.Source, hub *events.Hub) *Registry {
	t.Helper()
	limiter := ratelimit.New(ratelimit.Config{
		DefaultPerWindow: 1000,
		GlobalPerSecond:  100000,
		GlobalBurst:      100000,
	})
	batcher := metrics.NewBatcher(nil, 100)
	t.Cleanup(batcher.Close)

	engine := fetch.NewEngine(fetch.Config{MaxAttempts: 1}, limiter, batcher,
		metrics.NewCollectors(), credits.NewTracker(nil), normalize.New(true), nil)

	return New(config.Default(), Deps{
		Engine:  engine,
		Sources: sources,
		Hub:     hub,
		Limiter: limiter,
	})
}

func TestClientIsSingleton(t *testing.T) {
	src := &fakeSource{name: "structured", body: listingBody}
	r := testRegistry(t, map[string]backend.Source{
		"structured": src,
		"proxy":      src,
	}, nil)

	a, err := r.Client(domain.Amazon)
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	b, err := r.Client(domain.Amazon)
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if a != b {
		t.Error("expected the same client instance on repeat lookups")
	}
}

func TestClientUnknownSourceName(t *testing.T) {
	r := testRegistry(t, map[string]backend.Source{}, nil)
	if _, err := r.Client(domain.Amazon); err == nil {
		t.Fatal("expected error for unregistered source name")
	}
}

func TestSearchBuildsEscapedURL(t *testing.T) {
	src := &fakeSource{name: "structured", body: listingBody}
	r := testRegistry(t, map[string]backend.Source{
		"structured": src,
		"proxy":      src,
	}, nil)

	out, err := r.Search(context.Background(), domain.Amazon, "gaming laptop 16gb", Options{
		Page:     2,
		SortBy:   "price_asc",
		MinPrice: 200,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success, errors: %v", out.Errors)
	}

	target := src.lastTarget(t)
	if want := "https://www.amazon.com/s?k=gaming+laptop+16gb&page=2"; target.URL != want {
		t.Errorf("URL = %q, want %q", target.URL, want)
	}
	if target.Source != "amazon_search" {
		t.Errorf("Source = %q, want amazon_search", target.Source)
	}
	if target.Params["sort_by"] != "price_asc" || target.Params["min_price"] != "200.00" {
		t.Errorf("unexpected params: %v", target.Params)
	}
}

func TestProductTargetUsesDetailSource(t *testing.T) {
	src := &fakeSource{name: "structured", body: listingBody}
	r := testRegistry(t, map[string]backend.Source{
		"structured": src,
		"proxy":      src,
	}, nil)

	if _, err := r.Product(context.Background(), domain.Amazon, "B0ABC123", Options{}); err != nil {
		t.Fatalf("Product: %v", err)
	}

	target := src.lastTarget(t)
	if want := "https://www.amazon.com/dp/B0ABC123"; target.URL != want {
		t.Errorf("URL = %q, want %q", target.URL, want)
	}
	if target.Source != "amazon_product" {
		t.Errorf("Source = %q, want amazon_product", target.Source)
	}
}

func TestSearchAllCollectsEveryMarketplace(t *testing.T) {
	good := &fakeSource{name: "structured", body: listingBody}
	r := testRegistry(t, map[string]backend.Source{
		"structured": good,
		"proxy":      good,
	}, nil)

	results := r.SearchAll(context.Background(), "laptop", nil, Options{})
	if len(results) != len(domain.Marketplaces()) {
		t.Fatalf("got %d results, want %d", len(results), len(domain.Marketplaces()))
	}
	for m, out := range results {
		if !out.Success {
			t.Errorf("%s: expected success, errors: %v", m, out.Errors)
		}
	}

	st := r.Status()
	if st.Running {
		t.Error("status still reports running after fan-out returned")
	}
	if st.LastQuery != "laptop" {
		t.Errorf("LastQuery = %q", st.LastQuery)
	}
	if st.Products != len(domain.Marketplaces()) {
		t.Errorf("Products = %d, want %d", st.Products, len(domain.Marketplaces()))
	}
}

func TestSearchAllIsolatesFailures(t *testing.T) {
	good := &fakeSource{name: "structured", body: listingBody}
	bad := &fakeSource{name: "proxy", status: 503, body: "{}"}
	r := testRegistry(t, map[string]backend.Source{
		"structured": good,
		"proxy":      bad,
	}, nil)
	// Leave ebay with no working source: its primary is the proxy, and the
	// structured fallback is pointed at the failing one too.
	cfg := r.cfg
	mc := cfg.Markets["ebay"]
	mc.FallbackSource = "proxy"
	mc.PrimarySource = "proxy"
	cfg.Markets["ebay"] = mc
	r.cfg = cfg

	results := r.SearchAll(context.Background(), "laptop", []domain.Marketplace{domain.Amazon, domain.EBay}, Options{})

	if out := results[domain.Amazon]; !out.Success {
		t.Errorf("amazon: expected success, errors: %v", out.Errors)
	}
	if out := results[domain.EBay]; out.Success {
		t.Error("ebay: expected failure when both sources 503")
	}

	st := r.Status()
	if st.Failures["ebay"] == 0 {
		t.Error("expected ebay failure count in status")
	}
}

func TestSearchPublishesCompletionEvent(t *testing.T) {
	src := &fakeSource{name: "structured", body: listingBody}
	hub := events.NewHub()
	r := testRegistry(t, map[string]backend.Source{
		"structured": src,
		"proxy":      src,
	}, hub)

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	if _, err := r.Search(context.Background(), domain.Walmart, "tv", Options{}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	select {
	case msg := <-ch:
		if !strings.Contains(msg, `"scrape_completed"`) || !strings.Contains(msg, `"walmart"`) {
			t.Errorf("unexpected event payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestDetailSourceName(t *testing.T) {
	cases := map[string]string{
		"amazon_search":  "amazon_product",
		"walmart_search": "walmart_product",
		"universal":      "universal",
	}
	for in, want := range cases {
		if got := detailSourceName(in); got != want {
			t.Errorf("detailSourceName(%q) = %q, want %q", in, got, want)
		}
	}
}
