package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRegex finds the first valid price number in a string. Handles
// integers (1,079), decimals (119.00), and thousands separators.
var priceRegex = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// currencySymbols is ordered longest-first: "$" is a substring of "C$",
// "A$" and "US$", so the multi-character symbols must win.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"US$", "USD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"¥", "JPY"},
}

var currencyCodeRegex = regexp.MustCompile(`\b(USD|EUR|GBP|JPY|CAD|AUD|AED|INR|MXN|BRL)\b`)

// parsePriceString extracts a price and, when recognizable, a currency code
// from strings like "$1,299.99", "USD 219.41", or "from £12.50".
func parsePriceString(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", false
	}

	found := priceRegex.FindString(s)
	if found == "" {
		return 0, "", false
	}
	cleaned := strings.ReplaceAll(found, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, "", false
	}

	currency := ""
	if m := currencyCodeRegex.FindString(strings.ToUpper(s)); m != "" {
		currency = m
	} else {
		for _, cs := range currencySymbols {
			if strings.Contains(s, cs.symbol) {
				currency = cs.code
				break
			}
		}
	}
	return v, currency, true
}

// priceSubKeys are tried, in order, inside nested price objects like
// {"price": {"current_price": 9.99, "currency": "USD"}}.
var priceSubKeys = []string{
	"price", "current_price", "value", "amount", "raw", "min_price",
}

// extractPrice resolves a price from any of the encodings backends use:
// a bare number, a currency-prefixed string, or a nested object.
func extractPrice(v any) (float64, string, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, "", false
		}
		return t, "", true
	case int:
		if t < 0 {
			return 0, "", false
		}
		return float64(t), "", true
	case string:
		return parsePriceString(t)
	case map[string]any:
		currency := ""
		if c, ok := t["currency"].(string); ok {
			currency = strings.ToUpper(strings.TrimSpace(c))
		}
		for _, k := range priceSubKeys {
			sub, ok := t[k]
			if !ok || sub == nil {
				continue
			}
			// one level of nesting is all backends ever use
			if p, cur, ok := extractPrice(sub); ok {
				if currency == "" {
					currency = cur
				}
				return p, currency, true
			}
		}
	}
	return 0, "", false
}
