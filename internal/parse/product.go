package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yeomjw0907/catchdeal/internal/model"
)

// Selector cascades ordered from most specific page build to most
// generic fallback.
var (
	productTitleSelectors = []string{
		"h2.prod-buy-header__title",
		".prod-buy-header__title",
		`[class*="ProductTitle"]`,
		"h1",
	}
	productPriceSelectors = []string{
		".total-price strong",
		".prod-price__total .total-price",
		`[class*="totalPrice"]`,
		`[class*="salePrice"]`,
	}
	productOriginalSelectors = []string{
		".origin-price",
		".prod-price__origin",
		`[class*="originPrice"]`,
	}
)

// ParseProduct dissects a single product page into a structured record.
// Returns nil when no plausible title or price can be found; the Link
// field is left for the caller to fill.
func ParseProduct(html string) *model.ScannedProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	title := firstText(doc, productTitleSelectors)
	if title == "" {
		if v, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			title = collapseWS(v)
		}
	}

	var price int64
	for _, sel := range productPriceSelectors {
		if v := parsePrice(doc.Find(sel).First().Text()); v > 0 {
			price = v
			break
		}
	}

	var original int64
	for _, sel := range productOriginalSelectors {
		if v := parsePrice(doc.Find(sel).First().Text()); v > 0 {
			original = v
			break
		}
	}

	if len([]rune(title)) < 2 || price < minPlausiblePrice {
		return nil
	}

	price, original = orderPrices(price, original)
	return &model.ScannedProduct{
		Title:         truncateRunes(title, 300),
		Price:         price,
		OriginalPrice: original,
		DiscountRate:  discountRate(price, original),
	}
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := collapseWS(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
