package parse

import (
	"strings"
	"testing"
)

func TestParseProduct(t *testing.T) {
	tests := []struct {
		name         string
		html         string
		wantTitle    string
		wantPrice    int64
		wantOriginal int64
		wantDiscount int
	}{
		{
			name: "current page build",
			html: `<h2 class="prod-buy-header__title">애플 맥북 에어 M3</h2>
				<div class="prod-price"><span class="origin-price">1,500,000원</span>
				<span class="total-price"><strong>750,000원</strong></span></div>`,
			wantTitle:    "애플 맥북 에어 M3",
			wantPrice:    750000,
			wantOriginal: 1500000,
			wantDiscount: 50,
		},
		{
			name: "class-hinted build",
			html: `<div class="sc-ProductTitle-x1">로봇 청소기</div>
				<span class="sc-totalPrice-y2">320,000원</span>`,
			wantTitle:    "로봇 청소기",
			wantPrice:    320000,
			wantOriginal: 0,
			wantDiscount: 0,
		},
		{
			name: "generic fallbacks",
			html: `<head><meta property="og:title" content="공기청정기 필터"/></head>
				<body><span class="salePrice">45,000원</span></body>`,
			wantTitle:    "공기청정기 필터",
			wantPrice:    45000,
			wantOriginal: 0,
			wantDiscount: 0,
		},
		{
			name: "inverted prices get ordered",
			html: `<h1>가격 역전 상품</h1>
				<span class="total-price"><strong>90,000원</strong></span>
				<span class="origin-price">30,000원</span>`,
			wantTitle:    "가격 역전 상품",
			wantPrice:    30000,
			wantOriginal: 90000,
			wantDiscount: 67,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProduct(tt.html)
			if got == nil {
				t.Fatalf("expected a product, got nil")
			}
			if got.Title != tt.wantTitle {
				t.Errorf("title: got %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Price != tt.wantPrice || got.OriginalPrice != tt.wantOriginal {
				t.Errorf("prices: got %d/%d, want %d/%d", got.Price, got.OriginalPrice, tt.wantPrice, tt.wantOriginal)
			}
			if got.DiscountRate != tt.wantDiscount {
				t.Errorf("discount: got %d, want %d", got.DiscountRate, tt.wantDiscount)
			}
		})
	}
}

func TestParseProduct_Rejects(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no title", `<span class="total-price"><strong>50,000원</strong></span>`},
		{"one-rune title", `<h1>A</h1><span class="total-price"><strong>50,000원</strong></span>`},
		{"no price", `<h1>가격 없는 상품</h1>`},
		{"implausible price", `<h1>이상한 상품</h1><span class="total-price"><strong>50원</strong></span>`},
		{"empty document", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseProduct(tt.html); got != nil {
				t.Fatalf("expected nil, got %+v", got)
			}
		})
	}
}

func TestParseProduct_TruncatesLongTitle(t *testing.T) {
	long := strings.Repeat("가", 400)
	html := `<h1>` + long + `</h1><span class="total-price"><strong>50,000원</strong></span>`

	got := ParseProduct(html)
	if got == nil {
		t.Fatalf("expected a product, got nil")
	}
	if n := len([]rune(got.Title)); n != 300 {
		t.Fatalf("expected title truncated to 300 runes, got %d", n)
	}
}

func TestDiscountRate(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		original int64
		want     int
	}{
		{"half off", 50000, 100000, 50},
		{"rounds up", 66600, 100000, 33},
		{"rounds half away from zero", 45000, 100000, 55},
		{"no original", 50000, 0, 0},
		{"original equals price", 50000, 50000, 0},
		{"original below price", 50000, 40000, 0},
		{"zero price", 0, 100000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := discountRate(tt.price, tt.original); got != tt.want {
				t.Fatalf("discountRate(%d, %d) = %d, want %d", tt.price, tt.original, got, tt.want)
			}
		})
	}
}
