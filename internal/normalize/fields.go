package normalize

import (
	"strconv"
	"strings"
)

// lookupPath walks a dot-separated path through nested objects and returns
// the value at the end, or nil.
func lookupPath(root any, path string) any {
	cur := root
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func asItemList(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// firstString returns the first non-empty string among the candidate keys.
// Objects with a "name"/"title"/"id" member (seller objects, mostly) are
// unwrapped one level.
func firstString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case map[string]any:
			for _, sub := range []string{"name", "title", "id", "url", "link"} {
				if s, ok := t[sub].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

// firstNumber returns the first parseable number among the candidate keys.
// Strings like "4.5 out of 5 stars" or "1,234" resolve to their leading
// numeric token.
func firstNumber(item map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case string:
			found := priceRegex.FindString(t)
			if found == "" {
				continue
			}
			if f, err := strconv.ParseFloat(strings.ReplaceAll(found, ",", ""), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// firstBool resolves truthiness across the encodings seen in the wild:
// booleans, "true"/"yes"/"1" strings, and nonzero numbers.
func firstBool(item map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1":
				return true, true
			case "false", "no", "0":
				return false, true
			}
		case float64:
			return t != 0, true
		}
	}
	return false, false
}

// availabilityString renders the availability field, which backends encode
// as a bool, a status string, or an {"in_stock": bool} object.
func availabilityString(item map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := item[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			if t {
				return "in_stock"
			}
			return "out_of_stock"
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case map[string]any:
			if b, ok := t["in_stock"].(bool); ok {
				if b {
					return "in_stock"
				}
				return "out_of_stock"
			}
		}
	}
	return ""
}
