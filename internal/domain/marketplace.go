package domain

import (
	"fmt"
	"strings"
)

// Marketplace identifies one of the supported e-commerce sites.
type Marketplace string

const (
	Amazon         Marketplace = "amazon"
	Walmart        Marketplace = "walmart"
	EBay           Marketplace = "ebay"
	GoogleShopping Marketplace = "google_shopping"
)

// Marketplaces lists every supported marketplace in a stable order.
func Marketplaces() []Marketplace {
	return []Marketplace{Amazon, Walmart, EBay, GoogleShopping}
}

func (m Marketplace) String() string { return string(m) }

// Valid reports whether m is one of the supported marketplaces.
func (m Marketplace) Valid() bool {
	switch m {
	case Amazon, Walmart, EBay, GoogleShopping:
		return true
	}
	return false
}

// ParseMarketplace accepts the canonical names plus a few common aliases
// (e.g. "google-shopping", "google").
func ParseMarketplace(s string) (Marketplace, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, "-", "_")
	switch k {
	case "amazon":
		return Amazon, nil
	case "walmart":
		return Walmart, nil
	case "ebay":
		return EBay, nil
	case "google_shopping", "google", "googleshopping":
		return GoogleShopping, nil
	}
	return "", fmt.Errorf("unknown marketplace %q", s)
}
