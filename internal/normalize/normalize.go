// Package normalize converts the wildly different payload shapes the
// scraping backends return into the canonical Product schema. It only ever
// reads known, bounded-depth fields, so cyclic or adversarial payloads
// cannot recurse.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricehunt-engine/internal/domain"
)

// listPaths are tried in priority order until one yields a non-empty item
// list. Groups concatenate (organic + paid results count as one list).
var commonListPaths = [][]string{
	{"results"},
	{"items"},
	{"products"},
	{"organic_results"},
	{"search_results"},
	{"content.results.organic", "content.results.paid"},
	{"content.results"},
	{"data.products"},
	{"data.items"},
}

var marketListPaths = map[domain.Marketplace][][]string{
	domain.Amazon: {
		{"results.organic", "results.paid"},
		{"search_results"},
	},
	domain.Walmart: {
		{"items"},
		{"data.search.searchResult.itemStacks"},
	},
	domain.EBay: {
		{"itemSummaries"},
		{"findItemsResponse.items"},
	},
	domain.GoogleShopping: {
		{"shopping_results", "inline_shopping_results"},
		{"pla_results"},
	},
}

var marketIDKeys = map[domain.Marketplace][]string{
	domain.Amazon:         {"asin", "product_id", "id"},
	domain.Walmart:        {"usItemId", "us_item_id", "product_id", "item_id", "id"},
	domain.EBay:           {"epid", "itemId", "item_id", "legacyItemId", "id"},
	domain.GoogleShopping: {"product_id", "item_id", "docid", "id"},
}

// Normalizer holds the normalization policy. In strict mode items without a
// title or a resolvable price are dropped; in lenient mode priceless items
// are kept with a zero price and a data-quality note.
type Normalizer struct {
	Strict bool

	now func() time.Time
}

func New(strict bool) *Normalizer {
	return &Normalizer{Strict: strict, now: time.Now}
}

// Normalize converts a raw backend payload into canonical products. A
// malformed or unrecognized payload returns an empty slice plus an
// ErrNormalize; it never panics and never returns partial garbage.
func (n *Normalizer) Normalize(market domain.Marketplace, raw []byte) ([]domain.Product, []string, error) {
	if len(raw) == 0 {
		return nil, nil, domain.ErrNormalize{Err: errors.New("empty payload")}
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, nil, domain.ErrNormalize{Err: fmt.Errorf("payload is not JSON: %w", err)}
	}

	items, located := n.locateItems(market, root)
	if !located {
		// Some backends wrap a rendered page instead of parsed results.
		if p, ok := n.fromHTML(market, root); ok {
			return []domain.Product{p}, nil, nil
		}
		return nil, nil, domain.ErrNormalize{
			Err: fmt.Errorf("unrecognized %s payload shape", market),
		}
	}

	capturedAt := n.now().UTC()
	products := make([]domain.Product, 0, len(items))
	var notes []string

	for i, item := range items {
		p, note, ok := n.normalizeItem(market, item, capturedAt)
		if note != "" {
			notes = append(notes, fmt.Sprintf("item %d: %s", i, note))
		}
		if ok {
			products = append(products, p)
		}
	}
	return products, notes, nil
}

// locateItems finds the product list inside the payload. A bare top-level
// array wins; otherwise marketplace-specific paths are tried before the
// common aliases. Returns located=false only when no known path matches.
func (n *Normalizer) locateItems(market domain.Marketplace, root any) ([]map[string]any, bool) {
	if items := asItemList(root); items != nil {
		return items, true
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, false
	}

	paths := append(append([][]string{}, marketListPaths[market]...), commonListPaths...)
	for _, group := range paths {
		var merged []map[string]any
		matched := false
		for _, path := range group {
			v := lookupPath(obj, path)
			if v == nil {
				continue
			}
			if items := asItemList(v); items != nil {
				matched = true
				merged = append(merged, items...)
			}
		}
		if matched {
			return merged, true
		}
	}
	return nil, false
}

func (n *Normalizer) normalizeItem(market domain.Marketplace, item map[string]any, capturedAt time.Time) (domain.Product, string, bool) {
	title := firstString(item, "title", "name", "product_title", "item_title")
	if title == "" && n.Strict {
		return domain.Product{}, "dropped: missing title", false
	}

	price, currency, priceOK := resolveItemPrice(item)
	note := ""
	if !priceOK {
		if n.Strict {
			return domain.Product{}, "dropped: no resolvable price", false
		}
		note = "kept without price"
	}
	if currency == "" {
		currency = firstString(item, "currency", "price_currency", "currency_code")
	}
	if currency == "" {
		currency = "USD"
	}

	seller := firstString(item, "seller", "merchant", "seller_name", "sold_by", "store")

	p := domain.Product{
		ID:           itemID(market, item, title, seller, price),
		Title:        title,
		Price:        price,
		Currency:     currency,
		ImageURL:     firstString(item, "image", "image_url", "thumbnail", "img", "main_image", "image_link"),
		ProductURL:   firstString(item, "url", "link", "product_url", "item_url", "product_link"),
		Seller:       seller,
		Availability: availabilityString(item, "availability", "in_stock", "is_available", "stock_status"),
		Marketplace:  market,
		CapturedAt:   capturedAt,
	}

	if r, ok := firstNumber(item, "rating", "stars", "average_rating", "rating_score"); ok && r >= 0 && r <= 5 {
		p.Rating = r
	}
	if rc, ok := firstNumber(item, "reviews", "review_count", "reviews_count", "ratings_total", "review_number"); ok && rc >= 0 {
		p.ReviewCount = int(rc)
	}
	if sp, ok := firstBool(item, "sponsored", "is_sponsored", "ad", "is_ad"); ok {
		p.Sponsored = sp
	}

	// Original price only survives when strictly above the resolved price;
	// anything else is a data-quality artifact.
	if orig, _, ok := resolveOriginalPrice(item); ok && priceOK && orig > price {
		p.OriginalPrice = orig
	}

	return p, note, true
}

var priceKeys = []string{
	"price", "current_price", "price_current", "sale_price",
	"price_info", "pricing", "offer_price", "price_upper",
}

var originalPriceKeys = []string{
	"original_price", "price_strikethrough", "list_price",
	"was_price", "old_price", "msrp",
}

func resolveItemPrice(item map[string]any) (float64, string, bool) {
	for _, k := range priceKeys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		if p, cur, ok := extractPrice(v); ok {
			return p, cur, true
		}
	}
	return 0, "", false
}

func resolveOriginalPrice(item map[string]any) (float64, string, bool) {
	for _, k := range originalPriceKeys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		if p, cur, ok := extractPrice(v); ok {
			return p, cur, true
		}
	}
	// nested {"price": {..., "price_strikethrough": 129.99}}
	if nested, ok := item["price"].(map[string]any); ok {
		for _, k := range originalPriceKeys {
			if v, ok := nested[k]; ok && v != nil {
				if p, cur, ok := extractPrice(v); ok {
					return p, cur, true
				}
			}
		}
	}
	return 0, "", false
}

// itemID prefers the vendor's own identifier and falls back to a
// deterministic hash so the same listing maps to the same ID across runs.
func itemID(market domain.Marketplace, item map[string]any, title, seller string, price float64) string {
	if id := firstString(item, marketIDKeys[market]...); id != "" {
		return fmt.Sprintf("%s:%s", market, id)
	}
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%.2f", market, title, seller, price)
	return fmt.Sprintf("%s:h:%s", market, hex.EncodeToString(h.Sum(nil))[:16])
}
