package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricehunt-engine/internal/domain"
)

// fromHTML handles the proxy backend's raw mode, where the payload is
// {"html": "<rendered page>"} instead of parsed results. Extraction sticks
// to vendor-neutral metadata (og: tags, schema.org itemprops); anything
// site-specific belongs to the structured backend.
func (n *Normalizer) fromHTML(market domain.Marketplace, root any) (domain.Product, bool) {
	obj, ok := root.(map[string]any)
	if !ok {
		return domain.Product{}, false
	}
	html, ok := obj["html"].(string)
	if !ok || strings.TrimSpace(html) == "" {
		return domain.Product{}, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Product{}, false
	}

	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	priceText := metaContent(doc, `meta[property="product:price:amount"]`)
	if priceText == "" {
		priceText = metaContent(doc, `meta[itemprop="price"]`)
	}
	if priceText == "" {
		priceText, _ = doc.Find(`[itemprop="price"]`).First().Attr("content")
	}
	price, currency, priceOK := parsePriceString(priceText)
	if currency == "" {
		currency = metaContent(doc, `meta[property="product:price:currency"]`)
	}
	if currency == "" {
		currency = "USD"
	}

	if title == "" || (n.Strict && !priceOK) {
		return domain.Product{}, false
	}

	p := domain.Product{
		ID:          itemID(market, map[string]any{}, title, "", price),
		Title:       title,
		Price:       price,
		Currency:    currency,
		ImageURL:    metaContent(doc, `meta[property="og:image"]`),
		ProductURL:  metaContent(doc, `meta[property="og:url"]`),
		Marketplace: market,
		CapturedAt:  n.now().UTC(),
	}
	return p, true
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
