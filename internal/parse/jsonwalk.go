package parse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Embedded payloads nest aggressively; past this depth there is nothing
// product-shaped left to find.
const maxWalkDepth = 8

// rawItem is a product candidate pulled out of an embedded JSON payload
// before normalization.
type rawItem struct {
	link     string
	title    string
	price    int64
	original int64
}

// walkPayload recursively scans a decoded JSON value for objects that
// look like products, resolving the key aliases different page builds
// use for the same fields.
func walkPayload(v any, base string, depth int, out *[]rawItem) {
	if depth > maxWalkDepth {
		return
	}

	switch node := v.(type) {
	case []any:
		for _, elem := range node {
			walkPayload(elem, base, depth+1, out)
		}
	case map[string]any:
		if item, ok := itemFromObject(node, base); ok {
			*out = append(*out, item)
		}
		// sorted keys keep the output order deterministic
		keys := make([]string, 0, len(node))
		for key := range node {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			walkPayload(node[key], base, depth+1, out)
		}
	}
}

func itemFromObject(obj map[string]any, base string) (rawItem, bool) {
	title := firstString(obj, "name", "title", "productName")
	price, hasPrice := firstNumber(obj, "price", "salePrice")
	if title == "" || !hasPrice || price <= 0 {
		return rawItem{}, false
	}

	link := firstString(obj, "link", "url", "productUrl", "itemUrl")
	if link == "" {
		if href := firstString(obj, "href", "path"); strings.Contains(href, "/np/products/") {
			link = href
		}
	}
	if link == "" {
		if id := firstScalar(obj, "productId", "itemId", "id"); id != "" {
			link = "/np/products/" + id
		}
	}
	if link == "" {
		return rawItem{}, false
	}

	link = absolutize(link, base)
	if !strings.Contains(link, "coupang.com") {
		return rawItem{}, false
	}

	original, _ := firstNumber(obj, "originalPrice", "listPrice")

	return rawItem{
		link:     link,
		title:    collapseWS(title),
		price:    price,
		original: original,
	}, true
}

func firstString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumber(obj map[string]any, keys ...string) (int64, bool) {
	for _, key := range keys {
		if f, ok := obj[key].(float64); ok {
			return int64(f), true
		}
	}
	return 0, false
}

// firstScalar accepts string and numeric IDs.
func firstScalar(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			if v > 0 && v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
		}
	}
	return ""
}

var globalStateRe = regexp.MustCompile(`window\.__[A-Z][A-Z0-9_]*__\s*=\s*\{`)

// extractInlineState finds the first window.__X__ = {...} assignment and
// returns the balanced object literal.
func extractInlineState(html string) (string, bool) {
	loc := globalStateRe.FindStringIndex(html)
	if loc == nil {
		return "", false
	}
	return balancedObject(html, loc[1]-1)
}

// balancedObject scans from an opening brace to its matching close,
// skipping string literals and escapes.
func balancedObject(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}

	depth := 0
	inString := false
	var quote byte
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}

		switch c {
		case '"', '\'', '`':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
