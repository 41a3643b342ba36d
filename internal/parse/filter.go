package parse

import (
	"strings"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/model"
)

// Filter decides whether a scanned product qualifies as a deal.
type Filter struct {
	minPrice    int64
	minDiscount int
	exclude     []string
}

func NewFilter(cfg config.FilterConfig) *Filter {
	exclude := make([]string, 0, len(cfg.ExcludeKeywords))
	for _, kw := range cfg.ExcludeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			exclude = append(exclude, kw)
		}
	}
	return &Filter{
		minPrice:    cfg.MinPrice,
		minDiscount: cfg.TargetDiscountRate,
		exclude:     exclude,
	}
}

// Match applies the price floor, the discount threshold and the
// excluded-keyword list.
func (f *Filter) Match(p model.ScannedProduct) bool {
	if p.Price < f.minPrice {
		return false
	}
	if p.DiscountRate < f.minDiscount {
		return false
	}
	title := strings.ToLower(p.Title)
	for _, kw := range f.exclude {
		if strings.Contains(title, kw) {
			return false
		}
	}
	return true
}
