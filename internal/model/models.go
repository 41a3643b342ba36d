package model

import (
	"time"
)

// EngineStatus is the phase the engine is currently in.
type EngineStatus string

const (
	StatusIdle       EngineStatus = "idle"       // constructed, not running
	StatusScanning   EngineStatus = "scanning"   // walking sources
	StatusPurchasing EngineStatus = "purchasing" // dissect/purchase sub-phase
	StatusError      EngineStatus = "error"      // unrecoverable setup failure
	StatusStopped    EngineStatus = "stopped"    // explicitly cancelled
)

// LinkStatus is the processing state of one extracted link.
type LinkStatus string

const (
	LinkPending LinkStatus = "pending"
	LinkSuccess LinkStatus = "success"
	LinkFailed  LinkStatus = "failed"
)

// ExtractedLink is a commerce link pulled out of a board post together
// with its dissection result. Status only moves forward: pending to
// success or failed, never back.
type ExtractedLink struct {
	URL         string     `json:"url"`
	PostTitle   string     `json:"post_title,omitempty"`
	ExtractedAt time.Time  `json:"extracted_at"`
	Status      LinkStatus `json:"status"`

	// filled on successful dissection
	ProductName   string `json:"product_name,omitempty"`
	Price         int64  `json:"price,omitempty"`
	OriginalPrice int64  `json:"original_price,omitempty"`
	DiscountRate  int    `json:"discount_rate,omitempty"`

	// filled when retries are exhausted
	RetryCount   int        `json:"retry_count,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ScannedProduct is one product parsed from a listing or product page.
// OriginalPrice is 0 when the page shows no strike-through price.
type ScannedProduct struct {
	Title         string `json:"title"`
	Price         int64  `json:"price"`
	OriginalPrice int64  `json:"original_price"`
	DiscountRate  int    `json:"discount_rate"`
	Link          string `json:"link"`
}

// DailyStats counts scans and purchases for the current wall-clock day.
// Date is YYYY-MM-DD; counters reset lazily when it rolls over.
type DailyStats struct {
	ScanCount     int    `json:"scan_count"`
	PurchaseCount int    `json:"purchase_count"`
	Date          string `json:"date"`
}

// TradeLog is one completed purchase. SellPrice is estimated at 10%
// over the buy price for resale accounting.
type TradeLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ProductName string `gorm:"size:300;not null" json:"product_name"`
	BuyPrice    int64  `gorm:"not null" json:"buy_price"`
	SellPrice   int64  `gorm:"not null" json:"sell_price"`
	Link        string `gorm:"size:1000" json:"link"`
	Status      string `gorm:"size:32;default:PURCHASED" json:"status"`
}
