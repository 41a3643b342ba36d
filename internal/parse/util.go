package parse

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var wsRe = regexp.MustCompile(`\s+`)

// collapseWS trims and squeezes whitespace runs into single spaces.
func collapseWS(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// stripQuery drops the query string and fragment from a URL.
func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return u
}

// NormalizeLink is the canonical form links are deduplicated under.
func NormalizeLink(u string) string {
	return stripQuery(u)
}

// absolutize resolves href against base when it is not already absolute.
func absolutize(href, base string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	hu, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var productIDRe = regexp.MustCompile(`/np/products/(\d+)`)

func productIDFromURL(u string) string {
	m := productIDRe.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// parsePrice strips every non-digit rune and parses what is left.
// Returns 0 when nothing numeric remains.
func parsePrice(s string) int64 {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
