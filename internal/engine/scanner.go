package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/driver"
	"github.com/yeomjw0907/catchdeal/internal/model"
	"github.com/yeomjw0907/catchdeal/internal/parse"
	"github.com/yeomjw0907/catchdeal/internal/pkg/metrics"
)

var errNotParseable = errors.New("parse product: name or price not found")

// scanSource walks one board: load the post list, match posts against
// the keyword, then extract and dissect commerce links post by post.
// Failures are logged and the cycle moves on to the next source.
func (e *Engine) scanSource(ctx context.Context, d driver.Driver, src config.SourceConfig) {
	e.emitLog(fmt.Sprintf("scanning board %s (keyword: %s)", src.Name, src.Keyword))

	page, err := d.NewPage(ctx)
	if err != nil {
		e.scanError("board", err)
		return
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.Browser.PageTimeout)
	err = page.Navigate(navCtx, src.ListURL)
	cancel()
	if err != nil {
		e.scanError("board", err)
		e.emitLog(fmt.Sprintf("board %s: list load failed: %v", src.Name, err))
		return
	}
	metrics.PagesNavigatedTotal.WithLabelValues("list").Inc()
	e.settle(ctx)

	html, err := page.HTML(ctx)
	if err != nil {
		e.scanError("board", err)
		return
	}

	posts := parse.MatchPosts(html, src.ListURL, src.Keyword)
	if len(posts) == 0 {
		if fh := e.frameHTML(ctx, page); fh != "" {
			posts = parse.MatchPosts(fh, src.ListURL, src.Keyword)
		}
	}

	e.bumpScan()

	if len(posts) == 0 {
		e.emitLog(fmt.Sprintf("board %s: no posts matched %q", src.Name, src.Keyword))
		return
	}
	e.emitLog(fmt.Sprintf("board %s: %d posts matched, extracting links", src.Name, len(posts)))

	for _, post := range posts {
		if ctx.Err() != nil {
			return
		}
		e.scanPost(ctx, d, post)
	}
}

// scanPost loads one post, splits its outbound links and dissects the
// commerce ones.
func (e *Engine) scanPost(ctx context.Context, d driver.Driver, post parse.Post) {
	page, err := d.NewPage(ctx)
	if err != nil {
		e.scanError("post", err)
		return
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.Browser.PageTimeout)
	err = page.Navigate(navCtx, post.URL)
	cancel()
	if err != nil {
		e.scanError("post", err)
		e.emitLog(fmt.Sprintf("post %q: load failed: %v", post.Title, err))
		return
	}
	metrics.PagesNavigatedTotal.WithLabelValues("post").Inc()
	e.settle(ctx)

	html, err := page.HTML(ctx)
	if err != nil {
		e.scanError("post", err)
		return
	}

	commerce, others := parse.ExtractPostLinks(html)
	if len(commerce) == 0 && len(others) == 0 {
		if fh := e.frameHTML(ctx, page); fh != "" {
			commerce, others = parse.ExtractPostLinks(fh)
		}
	}

	if len(others) > 0 {
		e.emitLog(fmt.Sprintf("post %q: %d non-commerce links skipped (%s)",
			post.Title, len(others), sample(others, 3)))
	}
	if len(commerce) == 0 {
		e.emitLog(fmt.Sprintf("post %q: no commerce links", post.Title))
		return
	}

	queue := &dissectQueue{}
	seen := make(map[string]bool)
	for _, link := range commerce {
		norm := parse.NormalizeLink(link)
		if seen[norm] {
			continue
		}
		seen[norm] = true

		dup, err := e.dedup.IsDuplicate(ctx, norm)
		if err != nil {
			e.logger.Warn("dedup check failed", slog.String("error", err.Error()))
		}
		if dup {
			e.emitLog("skipping recently seen link: " + link)
			continue
		}

		rec := &model.ExtractedLink{
			URL:         link,
			PostTitle:   post.Title,
			ExtractedAt: time.Now(),
			Status:      model.LinkPending,
		}
		e.trackLink(rec)
		metrics.LinksExtractedTotal.Inc()
		e.emitLinkExtracted(*rec)
		queue.push(dissectItem{rec: rec})
	}

	if queue.len() == 0 {
		return
	}
	e.emitLog(fmt.Sprintf("post %q: %d commerce links queued for dissection", post.Title, queue.len()))
	e.drainQueue(ctx, d, queue)
}

// drainQueue processes dissection items serially until the queue is
// empty or the run is cancelled. Cancellation leaves the remaining
// items pending.
func (e *Engine) drainQueue(ctx context.Context, d driver.Driver, q *dissectQueue) {
	e.setStatus(model.StatusPurchasing)
	defer e.setStatus(model.StatusScanning)
	defer metrics.DissectQueueDepth.Set(0)

	for {
		if ctx.Err() != nil {
			return
		}
		it, ok := q.pop()
		if !ok {
			return
		}
		metrics.DissectQueueDepth.Set(float64(q.len()))

		product, err := e.dissect(ctx, d, it.rec.URL)
		if err != nil && ctx.Err() != nil {
			// cancellation mid-attempt leaves the item pending, it does
			// not consume one of its attempts
			return
		}

		var res stepResult
		if err != nil {
			res = step(it, false, err.Error(), e.maxAttempts())
		} else {
			res = step(it, true, "", e.maxAttempts())
		}

		switch res.kind {
		case stepSuccess:
			e.completeLink(it.rec, product)
			metrics.DissectAttemptsTotal.WithLabelValues("success").Inc()
			e.emitLog(fmt.Sprintf("dissected: %s (%d원, -%d%%)",
				product.Title, product.Price, product.DiscountRate))
		case stepRequeue:
			e.recordRetry(res.item.rec, res.item.attempts)
			q.push(res.item)
			metrics.DissectQueueDepth.Set(float64(q.len()))
			metrics.DissectAttemptsTotal.WithLabelValues("retry").Inc()
			e.emitLog(fmt.Sprintf("dissection failed (%d/%d), moved to back of queue: %s",
				res.item.attempts, e.maxAttempts(), it.rec.URL))
		case stepFailed:
			e.failLink(res.item.rec, res.item.attempts, res.errMsg)
			metrics.DissectAttemptsTotal.WithLabelValues("failed").Inc()
			e.emitLog(fmt.Sprintf("dissection abandoned after %d attempts: %s",
				res.item.attempts, it.rec.URL))
		}
	}
}

// dissect opens the product page and parses it. Navigation errors and
// parse failures are both single failed attempts to the caller.
func (e *Engine) dissect(ctx context.Context, d driver.Driver, link string) (*model.ScannedProduct, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	page, err := d.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.Browser.PageTimeout)
	err = page.Navigate(navCtx, link)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	metrics.PagesNavigatedTotal.WithLabelValues("product").Inc()
	e.settle(ctx)

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("page html: %w", err)
	}

	product := parse.ParseProduct(html)
	if product == nil {
		return nil, errNotParseable
	}
	product.Link = link
	return product, nil
}

func (e *Engine) frameHTML(ctx context.Context, page driver.Page) string {
	frameCtx, cancel := context.WithTimeout(ctx, frameProbeTimeout)
	defer cancel()
	fh, err := page.FrameHTML(frameCtx, boardFrameSelector)
	if err != nil {
		return ""
	}
	return fh
}

func (e *Engine) trackLink(rec *model.ExtractedLink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.add(rec)
}

func (e *Engine) completeLink(rec *model.ExtractedLink, product *model.ScannedProduct) {
	e.mu.Lock()
	rec.Status = model.LinkSuccess
	rec.ProductName = product.Title
	rec.Price = product.Price
	rec.OriginalPrice = product.OriginalPrice
	rec.DiscountRate = product.DiscountRate
	snapshot := *rec
	e.mu.Unlock()
	e.emitLinkUpdated(snapshot)
}

func (e *Engine) recordRetry(rec *model.ExtractedLink, attempts int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec.RetryCount = attempts
}

func (e *Engine) failLink(rec *model.ExtractedLink, attempts int, errMsg string) {
	now := time.Now()
	e.mu.Lock()
	rec.Status = model.LinkFailed
	rec.RetryCount = attempts
	rec.FailedAt = &now
	rec.ErrorMessage = errMsg
	snapshot := *rec
	e.mu.Unlock()
	e.emitLinkUpdated(snapshot)
}

func sample(items []string, n int) string {
	if len(items) < n {
		n = len(items)
	}
	return strings.Join(items[:n], ", ")
}
