// Package parse turns raw page HTML into structured products, posts and
// links. Everything here is a pure function over an HTML string, so the
// parsers are testable against fixtures without a browser.
package parse

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yeomjw0907/catchdeal/internal/model"
)

const (
	// maxListItems caps how many products a single listing parse returns.
	maxListItems = 50

	// minEmbeddedPayload skips trivially small JSON blobs (analytics
	// beacons, feature flags) during embedded extraction.
	minEmbeddedPayload = 500
)

// ParseList extracts products from a listing page. The embedded-JSON
// strategy is authoritative; the DOM heuristic only runs when it yields
// nothing.
func ParseList(html, base string) []model.ScannedProduct {
	if items := ParseListEmbedded(html, base); len(items) > 0 {
		return items
	}
	return ParseListDOM(html, base)
}

// ParseListEmbedded pulls products out of JSON payloads the page ships
// for hydration: application/json script tags, __NEXT_DATA__, and one
// inline window.__X__ = {...} assignment.
func ParseListEmbedded(html, base string) []model.ScannedProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var payloads []string
	doc.Find(`script[type="application/json"], script#__NEXT_DATA__`).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if len(text) >= minEmbeddedPayload {
			payloads = append(payloads, text)
		}
	})
	if state, ok := extractInlineState(html); ok {
		payloads = append(payloads, state)
	}

	var raw []rawItem
	for _, payload := range payloads {
		var v any
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			continue
		}
		walkPayload(v, base, 0, &raw)
	}

	var items []model.ScannedProduct
	seen := make(map[string]bool)
	for _, r := range raw {
		key := stripQuery(r.link)
		if seen[key] {
			continue
		}
		seen[key] = true

		price, original := orderPrices(r.price, r.original)
		items = append(items, model.ScannedProduct{
			Title:         truncateRunes(r.title, 300),
			Price:         price,
			OriginalPrice: original,
			DiscountRate:  discountRate(price, original),
			Link:          r.link,
		})
		if len(items) >= maxListItems {
			break
		}
	}
	return items
}

// ParseListDOM is the fallback strategy: walk product anchors in the
// rendered markup and scrape title and prices out of the surrounding
// card element.
func ParseListDOM(html, base string) []model.ScannedProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []model.ScannedProduct
	seen := make(map[string]bool)

	doc.Find(`a[href*="/np/products/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return true
		}

		link := stripQuery(absolutize(href, base))
		if seen[link] {
			return true
		}
		seen[link] = true

		card := findProductCard(a)
		prices := priceTokens(card.Text())
		if len(prices) == 0 {
			return true
		}
		price := prices[0]
		var original int64
		if len(prices) > 1 {
			original = prices[1]
		}
		price, original = orderPrices(price, original)

		title := findTitleInCard(card, a, productIDFromURL(link))
		items = append(items, model.ScannedProduct{
			Title:         truncateRunes(title, 300),
			Price:         price,
			OriginalPrice: original,
			DiscountRate:  discountRate(price, original),
			Link:          link,
		})
		return len(items) < maxListItems
	})

	return items
}

// findProductCard returns the smallest ancestor that looks like one
// product card: few product links, currency-marked text.
func findProductCard(a *goquery.Selection) *goquery.Selection {
	for el := a.Parent(); el.Length() > 0; el = el.Parent() {
		if el.Is("body") || el.Is("html") {
			break
		}
		if el.Find(`a[href*="/np/products/"]`).Length() <= 2 && hasCurrency(el.Text()) {
			return el
		}
	}
	if c := a.Closest("li"); c.Length() > 0 {
		return c
	}
	if c := a.Closest(`[class*="product"], [class*="item"], [class*="card"]`); c.Length() > 0 {
		return c
	}
	return a.Parent()
}

// findTitleInCard resolves a product title with decreasing confidence:
// anchor text, anchor attributes, name-ish descendants, raw card text,
// then a synthesized placeholder.
func findTitleInCard(card, a *goquery.Selection, id string) string {
	if t := collapseWS(a.Text()); len([]rune(t)) > 3 {
		return t
	}
	if v, ok := a.Attr("title"); ok && collapseWS(v) != "" {
		return collapseWS(v)
	}
	if v, ok := a.Attr("aria-label"); ok && collapseWS(v) != "" {
		return collapseWS(v)
	}

	var found string
	card.Find(`dd, [class*="name"], [class*="title"], [class*="desc"], span, div`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := collapseWS(s.Text())
		n := len([]rune(t))
		if n >= 5 && n <= 200 && !isPriceOnly(t) {
			found = t
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	if t := collapseWS(card.Text()); len([]rune(t)) >= 5 {
		return truncateRunes(t, 150)
	}
	if id != "" {
		return "상품 " + id
	}
	return "상품"
}

// Post is one board post matched during a list scan.
type Post struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MatchPosts returns board posts whose anchor text contains the keyword,
// case-insensitively, restricted to the board's own host. Posts are
// deduplicated by query-stripped URL.
func MatchPosts(html, base, keyword string) []Post {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	host := hostOf(base)
	var posts []Post
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
			return
		}

		title := collapseWS(a.Text())
		if len([]rune(title)) < 2 {
			return
		}
		if !strings.Contains(strings.ToLower(title), kw) {
			return
		}

		u := absolutize(href, base)
		if host != "" && !strings.Contains(hostOf(u), host) {
			return
		}

		norm := stripQuery(u)
		if seen[norm] {
			return
		}
		seen[norm] = true
		posts = append(posts, Post{Title: title, URL: u})
	})

	return posts
}

// ExtractPostLinks collects outbound links from a post page, split into
// commerce links (dissection candidates) and everything else.
func ExtractPostLinks(html string) (commerce []string, others []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
			return
		}
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		if IsCommerceLink(href) {
			commerce = append(commerce, href)
		} else {
			others = append(others, href)
		}
	})

	return commerce, others
}

// IsCommerceLink reports whether the URL points at a dissectable
// product page.
func IsCommerceLink(href string) bool {
	return strings.Contains(href, "coupang.com") || strings.Contains(href, "/np/products")
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
