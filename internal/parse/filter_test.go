package parse

import (
	"testing"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/model"
)

func TestFilter_Match(t *testing.T) {
	f := NewFilter(config.FilterConfig{
		MinPrice:           100000,
		TargetDiscountRate: 50,
		ExcludeKeywords:    []string{"리퍼", "Refurbished"},
	})

	tests := []struct {
		name    string
		product model.ScannedProduct
		want    bool
	}{
		{
			name:    "qualifying deal",
			product: model.ScannedProduct{Title: "노트북 특가", Price: 500000, OriginalPrice: 1000000, DiscountRate: 50},
			want:    true,
		},
		{
			name:    "below price floor",
			product: model.ScannedProduct{Title: "마우스", Price: 30000, OriginalPrice: 60000, DiscountRate: 50},
			want:    false,
		},
		{
			name:    "below discount threshold",
			product: model.ScannedProduct{Title: "모니터", Price: 400000, OriginalPrice: 500000, DiscountRate: 20},
			want:    false,
		},
		{
			name:    "excluded keyword",
			product: model.ScannedProduct{Title: "노트북 리퍼 상품", Price: 500000, OriginalPrice: 1000000, DiscountRate: 50},
			want:    false,
		},
		{
			name:    "excluded keyword is case-insensitive",
			product: model.ScannedProduct{Title: "Laptop REFURBISHED deal", Price: 500000, OriginalPrice: 1000000, DiscountRate: 50},
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Match(tt.product); got != tt.want {
				t.Fatalf("Match(%q) = %v, want %v", tt.product.Title, got, tt.want)
			}
		})
	}
}
