package parse

import (
	"math"
	"regexp"
	"strings"
)

// Plausible listing prices. Anything outside is a review count, a
// percentage or similar noise.
const (
	minPlausiblePrice = 100
	maxPlausiblePrice = 100_000_000
)

var (
	// comma-grouped amounts count with or without the currency suffix;
	// bare digit runs only with it
	currencyRe   = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\s*원)?|\d+\s*원`)
	priceTokenRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d{3,}`)
	priceOnlyRe  = regexp.MustCompile(`^[0-9,.\s원~%↓-]+$`)
)

// hasCurrency reports whether the text contains a price-shaped amount.
func hasCurrency(text string) bool {
	return currencyRe.MatchString(text)
}

// priceTokens extracts numeric tokens from text, keeping only values in
// the plausible price window, in document order.
func priceTokens(text string) []int64 {
	var out []int64
	for _, tok := range priceTokenRe.FindAllString(text, -1) {
		v := parsePrice(strings.ReplaceAll(tok, ",", ""))
		if v >= minPlausiblePrice && v <= maxPlausiblePrice {
			out = append(out, v)
		}
	}
	return out
}

// isPriceOnly reports whether the text is nothing but price noise.
func isPriceOnly(text string) bool {
	return text != "" && priceOnlyRe.MatchString(text)
}

// discountRate is round(100*(1-price/original)) when a real markdown is
// present, 0 otherwise. A page that shows no strike-through price and a
// page discounted by a fraction of a percent both report 0.
func discountRate(price, original int64) int {
	if original <= 0 || price <= 0 || original <= price {
		return 0
	}
	return int(math.Round((1 - float64(price)/float64(original)) * 100))
}

// orderPrices swaps the pair so price never exceeds the original.
func orderPrices(price, original int64) (int64, int64) {
	if original > 0 && original < price {
		return original, price
	}
	return price, original
}
