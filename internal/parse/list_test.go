package parse

import (
	"fmt"
	"strings"
	"testing"
)

const commerceBase = "https://www.coupang.com"

func TestParseListEmbedded_NextData(t *testing.T) {
	payload := fmt.Sprintf(`{"props":{"pageProps":{"products":[
		{"productId":"100","name":"게이밍 마우스","price":30000,"originalPrice":60000},
		{"name":"기계식 키보드","price":80000,"url":"https://www.coupang.com/np/products/200?src=a"}
	],"pad":"%s"}}}`, strings.Repeat("x", 500))
	html := `<html><head><script id="__NEXT_DATA__" type="application/json">` + payload + `</script></head><body></body></html>`

	items := ParseListEmbedded(html, commerceBase)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.Link != "https://www.coupang.com/np/products/100" {
		t.Errorf("id-only node should resolve to a product URL, got %q", first.Link)
	}
	if first.Title != "게이밍 마우스" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Price != 30000 || first.OriginalPrice != 60000 {
		t.Errorf("unexpected prices %d/%d", first.Price, first.OriginalPrice)
	}
	if first.DiscountRate != 50 {
		t.Errorf("expected discount 50, got %d", first.DiscountRate)
	}

	second := items[1]
	if second.Link != "https://www.coupang.com/np/products/200?src=a" {
		t.Errorf("explicit URL should be kept as-is, got %q", second.Link)
	}
	if second.DiscountRate != 0 {
		t.Errorf("no original price should mean discount 0, got %d", second.DiscountRate)
	}
}

func TestParseListEmbedded_SkipsSmallPayloads(t *testing.T) {
	html := `<html><head><script type="application/json">{"products":[{"productId":"1","name":"숨은 특가","price":10000}]}</script></head></html>`
	if items := ParseListEmbedded(html, commerceBase); len(items) != 0 {
		t.Fatalf("payloads under the size floor must be ignored, got %d items", len(items))
	}
}

func TestParseListEmbedded_InlineState(t *testing.T) {
	html := `<html><body><script>
		window.__PRELOADED_STATE__ = {"note":"braces {inside} a string","deals":[
			{"itemId":300,"title":"한정 특가 태블릿","price":150000,"listPrice":300000}
		]};
		doSomethingElse();
	</script></body></html>`

	items := ParseListEmbedded(html, commerceBase)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Link != "https://www.coupang.com/np/products/300" {
		t.Errorf("numeric itemId should resolve to a product URL, got %q", got.Link)
	}
	if got.Price != 150000 || got.OriginalPrice != 300000 || got.DiscountRate != 50 {
		t.Errorf("unexpected item %+v", got)
	}
}

func TestParseListEmbedded_DedupByNormalizedLink(t *testing.T) {
	payload := fmt.Sprintf(`{"products":[
		{"name":"중복 상품","price":50000,"url":"https://www.coupang.com/np/products/77?src=a"},
		{"name":"중복 상품 두번째","price":52000,"url":"https://www.coupang.com/np/products/77?src=b"}
	],"pad":"%s"}`, strings.Repeat("x", 500))
	html := `<script type="application/json">` + payload + `</script>`

	items := ParseListEmbedded(html, commerceBase)
	if len(items) != 1 {
		t.Fatalf("links differing only by query must collapse to one entry, got %d", len(items))
	}
	if items[0].Title != "중복 상품" {
		t.Errorf("first occurrence should win, got %q", items[0].Title)
	}
}

func TestWalkPayload_DepthBound(t *testing.T) {
	product := map[string]any{"name": "깊은 상품", "price": float64(10000), "productId": "9"}

	nest := func(levels int) any {
		v := any(product)
		for i := 0; i < levels; i++ {
			v = map[string]any{"wrap": v}
		}
		return v
	}

	tests := []struct {
		name   string
		levels int
		want   int
	}{
		{"within bound", 8, 1},
		{"past bound", 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []rawItem
			walkPayload(nest(tt.levels), commerceBase, 0, &out)
			if len(out) != tt.want {
				t.Fatalf("levels=%d: expected %d items, got %d", tt.levels, tt.want, len(out))
			}
		})
	}
}

func TestParseListDOM(t *testing.T) {
	html := `<html><body><ul>
		<li>
			<a href="/np/products/123?q=1">슈퍼 노트북 특가</a>
			<div class="price"><span>49,000원</span><span class="origin">98,000원</span></div>
		</li>
		<li>
			<a href="/np/products/123?q=2">슈퍼 노트북 특가</a>
			<div class="price"><span>49,000원</span></div>
		</li>
		<li>
			<a href="/np/products/456"><img alt=""/></a>
			<dd>무선 이어폰 화이트</dd>
			<div class="price"><span>120,000원</span></div>
		</li>
	</ul></body></html>`

	items := ParseListDOM(html, commerceBase)
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dedup, got %d", len(items))
	}

	first := items[0]
	if first.Link != "https://www.coupang.com/np/products/123" {
		t.Errorf("href should be absolutized and query-stripped, got %q", first.Link)
	}
	if first.Title != "슈퍼 노트북 특가" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Price != 49000 || first.OriginalPrice != 98000 {
		t.Errorf("unexpected prices %d/%d", first.Price, first.OriginalPrice)
	}
	if first.DiscountRate != 50 {
		t.Errorf("expected discount 50, got %d", first.DiscountRate)
	}

	second := items[1]
	if second.Title != "무선 이어폰 화이트" {
		t.Errorf("title should come from the name-ish descendant, got %q", second.Title)
	}
	if second.Price != 120000 || second.OriginalPrice != 0 || second.DiscountRate != 0 {
		t.Errorf("unexpected item %+v", second)
	}
}

func TestParseListDOM_SwapsInvertedPrices(t *testing.T) {
	html := `<li>
		<a href="/np/products/9">역전 가격 상품</a>
		<span>80,000원</span><span>40,000원</span>
	</li>`

	items := ParseListDOM(html, commerceBase)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Price != 40000 || items[0].OriginalPrice != 80000 {
		t.Fatalf("prices must be ordered price <= original, got %d/%d", items[0].Price, items[0].OriginalPrice)
	}
}

func TestParseListDOM_CardWithoutCurrencySuffix(t *testing.T) {
	// some listing builds render comma-grouped amounts with no 원 suffix
	html := `<div>
		<div><a href="/np/products/10">무선 청소기 특가</a></div>
		<div>49,000 98,000</div>
	</div>`

	items := ParseListDOM(html, commerceBase)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Title != "무선 청소기 특가" {
		t.Errorf("unexpected title %q", got.Title)
	}
	if got.Price != 49000 || got.OriginalPrice != 98000 || got.DiscountRate != 50 {
		t.Errorf("unexpected item %+v", got)
	}
}

func TestParseListDOM_Empty(t *testing.T) {
	if items := ParseListDOM(`<html><body><p>결과 없음</p></body></html>`, commerceBase); len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestParseList_EmbeddedWinsOverDOM(t *testing.T) {
	payload := fmt.Sprintf(`{"products":[{"productId":"1","name":"임베디드 상품","price":25000}],"pad":"%s"}`,
		strings.Repeat("x", 500))
	html := `<script type="application/json">` + payload + `</script>
		<li><a href="/np/products/2">돔 상품 세일</a><span>30,000원</span></li>`

	items := ParseList(html, commerceBase)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Title != "임베디드 상품" {
		t.Fatalf("embedded strategy must take precedence, got %q", items[0].Title)
	}
}

func TestParseList_FallsBackToDOM(t *testing.T) {
	html := `<li><a href="/np/products/2">돔 상품 세일</a><span>30,000원</span></li>`
	items := ParseList(html, commerceBase)
	if len(items) != 1 || items[0].Title != "돔 상품 세일" {
		t.Fatalf("expected DOM fallback item, got %+v", items)
	}
}

func TestMatchPosts(t *testing.T) {
	base := "https://cafe.naver.com/dealcafe"
	html := `<html><body>
		<a href="/dealcafe/123?boardtype=L">오늘의 특가 공유</a>
		<a href="/dealcafe/123?boardtype=M">오늘의 특가 공유</a>
		<a href="https://blog.example.com/x">외부 특가 모음</a>
		<a href="/dealcafe/999">일반 글</a>
		<a href="#">특가</a>
		<a href="javascript:void(0)">특가 링크</a>
	</body></html>`

	posts := MatchPosts(html, base, "특가")
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d: %+v", len(posts), posts)
	}
	if posts[0].URL != "https://cafe.naver.com/dealcafe/123?boardtype=L" {
		t.Errorf("unexpected post URL %q", posts[0].URL)
	}
	if posts[0].Title != "오늘의 특가 공유" {
		t.Errorf("unexpected post title %q", posts[0].Title)
	}
}

func TestMatchPosts_CaseInsensitive(t *testing.T) {
	base := "https://cafe.naver.com/dealcafe"
	html := `<a href="/dealcafe/5">Big SALE on laptops</a>`

	posts := MatchPosts(html, base, "sale")
	if len(posts) != 1 {
		t.Fatalf("keyword match must be case-insensitive, got %d posts", len(posts))
	}
}

func TestMatchPosts_EmptyKeyword(t *testing.T) {
	html := `<a href="/dealcafe/5">아무 글</a>`
	if posts := MatchPosts(html, "https://cafe.naver.com/dealcafe", "  "); posts != nil {
		t.Fatalf("blank keyword must match nothing, got %+v", posts)
	}
}

func TestExtractPostLinks(t *testing.T) {
	html := `<html><body>
		<a href="https://www.coupang.com/np/products/111?src=share">쿠팡 링크</a>
		<a href="https://www.coupang.com/np/products/111?src=share">중복 링크</a>
		<a href="https://example.com/review">후기 블로그</a>
		<a href="/dealcafe/222">내부 링크</a>
		<a href="javascript:void(0)">버튼</a>
	</body></html>`

	commerce, others := ExtractPostLinks(html)
	if len(commerce) != 1 {
		t.Fatalf("expected 1 commerce link, got %d: %v", len(commerce), commerce)
	}
	if commerce[0] != "https://www.coupang.com/np/products/111?src=share" {
		t.Errorf("unexpected commerce link %q", commerce[0])
	}
	if len(others) != 1 || others[0] != "https://example.com/review" {
		t.Errorf("unexpected generic links %v", others)
	}
}
