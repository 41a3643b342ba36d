package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/driver"
	"github.com/yeomjw0907/catchdeal/internal/model"
	"github.com/yeomjw0907/catchdeal/internal/parse"
	"github.com/yeomjw0907/catchdeal/internal/pkg/metrics"
)

// scanSector walks one category page: parse the listing, run the deal
// filter, and attempt a purchase for every match.
func (e *Engine) scanSector(ctx context.Context, d driver.Driver, sec config.SectorConfig) {
	e.emitLog(fmt.Sprintf("scanning sector %s", sec.Name))

	page, err := d.NewPage(ctx)
	if err != nil {
		e.scanError("sector", err)
		return
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.Browser.PageTimeout)
	err = page.Navigate(navCtx, sec.CategoryURL)
	cancel()
	if err != nil {
		e.scanError("sector", err)
		e.emitLog(fmt.Sprintf("sector %s: load failed: %v", sec.Name, err))
		return
	}
	metrics.PagesNavigatedTotal.WithLabelValues("category").Inc()
	e.settle(ctx)

	html, err := page.HTML(ctx)
	if err != nil {
		e.scanError("sector", err)
		return
	}

	items := parse.ParseList(html, commerceBase)
	e.bumpScan()

	if len(items) == 0 {
		if blockedPage(html) {
			e.emitLog(fmt.Sprintf("sector %s: page looks blocked", sec.Name))
		} else {
			e.emitLog(fmt.Sprintf("sector %s: no products found", sec.Name))
		}
		return
	}
	e.emitLog(fmt.Sprintf("sector %s: %d products", sec.Name, len(items)))

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if !e.filter.Match(item) {
			continue
		}
		e.emitLog(fmt.Sprintf("deal found: %s (%d원, -%d%%)", item.Title, item.Price, item.DiscountRate))

		if !e.tryPurchase(ctx, d, item) {
			continue
		}
		e.bumpPurchase()
		metrics.PurchasesTotal.Inc()
		e.recordTrade(ctx, item)
		e.notifyDeal(ctx, item)
	}
}

// tryPurchase drives the buy flow on the product page. Selector clicks
// are best-effort; page builds differ and a missed step just means the
// order did not complete.
func (e *Engine) tryPurchase(ctx context.Context, d driver.Driver, item model.ScannedProduct) bool {
	if e.cfg.App.PaymentPassword == "" {
		e.emitLog("payment password not configured, skipping purchase")
		return false
	}

	e.setStatus(model.StatusPurchasing)
	defer e.setStatus(model.StatusScanning)

	page, err := d.NewPage(ctx)
	if err != nil {
		e.scanError("purchase", err)
		return false
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, e.cfg.Browser.PageTimeout)
	err = page.Navigate(navCtx, item.Link)
	cancel()
	if err != nil {
		e.scanError("purchase", err)
		e.emitLog(fmt.Sprintf("purchase aborted, product page failed: %v", err))
		return false
	}
	metrics.PagesNavigatedTotal.WithLabelValues("purchase").Inc()
	e.settle(ctx)

	e.clickAny(ctx, page, `a.prod-buy-btn, button.prod-buy-btn, [class*="buyButton"], [class*="directOrder"]`)
	e.settle(ctx)
	e.clickAny(ctx, page, `button.payment-btn, [class*="paymentButton"], [class*="goPayment"]`)
	e.settle(ctx)

	fillCtx, cancelFill := context.WithTimeout(ctx, purchaseStepTimeout)
	if err := page.Fill(fillCtx, `input[type="password"], input[name*="password"]`, e.cfg.App.PaymentPassword); err != nil {
		e.logger.Debug("password field not found", slog.String("error", err.Error()))
	}
	cancelFill()

	e.clickAny(ctx, page, `button[type="submit"], [class*="confirmPayment"], [class*="paymentConfirm"]`)
	e.settle(ctx)

	textCtx, cancelText := context.WithTimeout(ctx, purchaseStepTimeout)
	if orderID, err := page.Text(textCtx, `[class*="orderNumber"], [class*="order-id"], .order-number`); err == nil && orderID != "" {
		e.emitLog("order confirmed: " + orderID)
	}
	cancelText()

	return ctx.Err() == nil
}

func (e *Engine) clickAny(ctx context.Context, page driver.Page, selector string) {
	clickCtx, cancel := context.WithTimeout(ctx, purchaseStepTimeout)
	defer cancel()
	if err := page.Click(clickCtx, selector); err != nil {
		e.logger.Debug("click skipped",
			slog.String("selector", selector),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) recordTrade(ctx context.Context, item model.ScannedProduct) {
	entry := &model.TradeLog{
		ProductName: item.Title,
		BuyPrice:    item.Price,
		SellPrice:   int64(math.Round(float64(item.Price) * 1.1)),
		Link:        item.Link,
		Status:      "PURCHASED",
	}
	if err := e.store.Insert(ctx, entry); err != nil {
		e.logger.Error("trade log write failed", slog.String("error", err.Error()))
		e.emitLog("trade log write failed: " + err.Error())
	}
}

func (e *Engine) notifyDeal(ctx context.Context, item model.ScannedProduct) {
	if e.notifier == nil || e.cfg.App.NotifyEmail == "" {
		return
	}
	if err := e.notifier.Send(ctx, &item, "Deal Purchased", e.cfg.App.NotifyEmail); err != nil {
		e.logger.Warn("deal notification failed", slog.String("error", err.Error()))
	}
}
