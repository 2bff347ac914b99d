package normalize

import (
	"encoding/json"
	"testing"

	"pricehunt-engine/internal/domain"
)

func mustNormalize(t *testing.T, n *Normalizer, market domain.Marketplace, raw string) []domain.Product {
	t.Helper()
	products, _, err := n.Normalize(market, []byte(raw))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return products
}

func TestFlatListPayload(t *testing.T) {
	raw := `[
		{"asin": "B0TEST1", "title": "Laptop Pro", "price": 999.99, "url": "https://a/1"},
		{"asin": "B0TEST2", "title": "Laptop Air", "price": 799.5, "url": "https://a/2"}
	]`
	products := mustNormalize(t, New(true), domain.Amazon, raw)
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].ID != "amazon:B0TEST1" {
		t.Fatalf("id = %q", products[0].ID)
	}
	if products[0].Price != 999.99 || products[0].Currency != "USD" {
		t.Fatalf("price = %v %s", products[0].Price, products[0].Currency)
	}
}

func TestResultsWrapperPayload(t *testing.T) {
	raw := `{"results": [{"title": "Cordless Drill", "price": "$129.00", "id": "w1"}]}`
	products := mustNormalize(t, New(true), domain.Walmart, raw)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	if products[0].Price != 129.0 {
		t.Fatalf("price = %v", products[0].Price)
	}
}

func TestOrganicPaidNestedPayload(t *testing.T) {
	raw := `{"content": {"results": {
		"organic": [{"title": "Widget", "price": 10, "asin": "O1"}],
		"paid":    [{"title": "Widget Sponsored", "price": 12, "asin": "P1", "sponsored": true}]
	}}}`
	products := mustNormalize(t, New(true), domain.Amazon, raw)
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if !products[1].Sponsored {
		t.Fatal("paid result should carry sponsored flag")
	}
}

func TestGoogleShoppingAlias(t *testing.T) {
	raw := `{"shopping_results": [{"title": "Camera", "price": "€549.00", "product_id": "g9"}]}`
	products := mustNormalize(t, New(true), domain.GoogleShopping, raw)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	if products[0].Currency != "EUR" {
		t.Fatalf("currency = %q, want EUR", products[0].Currency)
	}
}

func TestNestedPriceObject(t *testing.T) {
	raw := `{"results": [{
		"title": "Monitor",
		"id": "m1",
		"price": {"price": 249.99, "currency": "USD", "price_strikethrough": 329.99}
	}]}`
	products := mustNormalize(t, New(true), domain.EBay, raw)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	p := products[0]
	if p.Price != 249.99 {
		t.Fatalf("price = %v", p.Price)
	}
	if p.OriginalPrice != 329.99 {
		t.Fatalf("original price = %v, want 329.99", p.OriginalPrice)
	}
}

func TestOriginalPriceOnlyWhenStrictlyGreater(t *testing.T) {
	tests := []struct {
		name     string
		original string
		want     float64
	}{
		{name: "greater kept", original: `129.99`, want: 129.99},
		{name: "equal dropped", original: `99.99`, want: 0},
		{name: "lower dropped", original: `49.99`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"results": [{"title": "X", "id": "x", "price": 99.99, "original_price": ` + tt.original + `}]}`
			products := mustNormalize(t, New(true), domain.Amazon, raw)
			if len(products) != 1 {
				t.Fatalf("products = %d", len(products))
			}
			if products[0].OriginalPrice != tt.want {
				t.Fatalf("original = %v, want %v", products[0].OriginalPrice, tt.want)
			}
		})
	}
}

func TestStrictModeDropsPricelessItems(t *testing.T) {
	raw := `{"results": [
		{"title": "Has price", "id": "a", "price": 5},
		{"title": "No price", "id": "b"},
		{"id": "c", "price": 9}
	]}`

	strict := mustNormalize(t, New(true), domain.Walmart, raw)
	if len(strict) != 1 {
		t.Fatalf("strict products = %d, want 1", len(strict))
	}

	n := New(false)
	lenient, notes, err := n.Normalize(domain.Walmart, []byte(raw))
	if err != nil {
		t.Fatalf("lenient normalize: %v", err)
	}
	// Lenient keeps the priceless item at price 0 with a note; a missing
	// title is still tolerated in lenient mode.
	if len(lenient) != 3 {
		t.Fatalf("lenient products = %d, want 3", len(lenient))
	}
	if lenient[1].Price != 0 {
		t.Fatalf("lenient priceless price = %v, want 0", lenient[1].Price)
	}
	if len(notes) == 0 {
		t.Fatal("lenient mode should note kept-without-price items")
	}
}

func TestDerivedIDStableWithoutVendorID(t *testing.T) {
	raw := `{"results": [{"title": "Mystery Gadget", "seller": "acme", "price": 19.99}]}`
	a := mustNormalize(t, New(true), domain.EBay, raw)
	b := mustNormalize(t, New(true), domain.EBay, raw)
	if a[0].ID == "" || a[0].ID != b[0].ID {
		t.Fatalf("derived ids differ: %q vs %q", a[0].ID, b[0].ID)
	}
}

func TestRatingReviewSellerAvailability(t *testing.T) {
	raw := `{"results": [{
		"title": "Blender", "id": "bl1", "price": 49,
		"rating": "4.6 out of 5 stars",
		"reviews_count": "1,234",
		"seller": {"name": "KitchenCo"},
		"in_stock": true
	}]}`
	products := mustNormalize(t, New(true), domain.Amazon, raw)
	p := products[0]
	if p.Rating != 4.6 {
		t.Fatalf("rating = %v", p.Rating)
	}
	if p.ReviewCount != 1234 {
		t.Fatalf("reviews = %d", p.ReviewCount)
	}
	if p.Seller != "KitchenCo" {
		t.Fatalf("seller = %q", p.Seller)
	}
	if p.Availability != "in_stock" {
		t.Fatalf("availability = %q", p.Availability)
	}
}

func TestMalformedPayloadReturnsNormalizeError(t *testing.T) {
	n := New(true)
	for _, raw := range []string{
		``,
		`not json at all`,
		`{"weird": {"shape": 1}}`,
		`42`,
	} {
		products, _, err := n.Normalize(domain.Amazon, []byte(raw))
		if err == nil {
			t.Fatalf("raw %q: expected error", raw)
		}
		if domain.ErrorTypeLabel(err) != "normalize" {
			t.Fatalf("raw %q: error type = %s", raw, domain.ErrorTypeLabel(err))
		}
		if len(products) != 0 {
			t.Fatalf("raw %q: products = %d, want 0", raw, len(products))
		}
	}
}

func TestEmptyResultsIsNotAnError(t *testing.T) {
	products, _, err := New(true).Normalize(domain.Amazon, []byte(`{"results": []}`))
	if err != nil {
		t.Fatalf("empty results: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("products = %d, want 0", len(products))
	}
}

func TestHTMLFallback(t *testing.T) {
	page := `<html><head>
		<title>Fallback Gadget</title>
		<meta property="og:title" content="Fallback Gadget Deluxe">
		<meta property="og:image" content="https://img/x.jpg">
		<meta property="product:price:amount" content="59.90">
		<meta property="product:price:currency" content="EUR">
	</head><body></body></html>`
	payload, _ := json.Marshal(map[string]string{"html": page})

	products, _, err := New(true).Normalize(domain.EBay, payload)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	p := products[0]
	if p.Title != "Fallback Gadget Deluxe" || p.Price != 59.90 || p.Currency != "EUR" {
		t.Fatalf("product = %+v", p)
	}
}

func TestRoundTripCanonicalProduct(t *testing.T) {
	// A synthetic payload mirroring a canonical product reproduces the
	// same fields after normalization.
	want := domain.Product{
		ID:            "amazon:B0ROUND",
		Title:         "Round Trip",
		Price:         42.42,
		Currency:      "USD",
		OriginalPrice: 59.99,
		ImageURL:      "https://img/r.jpg",
		ProductURL:    "https://a/r",
		Rating:        4.2,
		ReviewCount:   77,
		Seller:        "RoundCo",
		Availability:  "in_stock",
		Sponsored:     true,
		Marketplace:   domain.Amazon,
	}
	payload := `{"results": [{
		"asin": "B0ROUND",
		"title": "Round Trip",
		"price": 42.42,
		"currency": "USD",
		"original_price": 59.99,
		"image_url": "https://img/r.jpg",
		"url": "https://a/r",
		"rating": 4.2,
		"review_count": 77,
		"seller": "RoundCo",
		"availability": "in_stock",
		"sponsored": true
	}]}`

	products := mustNormalize(t, New(true), domain.Amazon, payload)
	if len(products) != 1 {
		t.Fatalf("products = %d", len(products))
	}
	got := products[0]
	got.CapturedAt = want.CapturedAt
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestParsePriceStringFormats(t *testing.T) {
	tests := []struct {
		in       string
		want     float64
		currency string
		ok       bool
	}{
		{"$1,299.99", 1299.99, "USD", true},
		{"USD 219.41", 219.41, "USD", true},
		{"List Price: AED 219.41", 219.41, "AED", true},
		{"£12", 12, "GBP", true},
		{"C$12.00", 12, "CAD", true},
		{"A$49.95", 49.95, "AUD", true},
		{"US$5", 5, "USD", true},
		{"$99.99", 99.99, "USD", true},
		{"1079", 1079, "", true},
		{"free", 0, "", false},
		{"", 0, "", false},
	}
	for _, tt := range tests {
		got, cur, ok := parsePriceString(tt.in)
		if ok != tt.ok || got != tt.want || cur != tt.currency {
			t.Errorf("parsePriceString(%q) = (%v, %q, %v), want (%v, %q, %v)",
				tt.in, got, cur, ok, tt.want, tt.currency, tt.ok)
		}
	}
}
