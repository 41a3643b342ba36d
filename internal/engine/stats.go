package engine

import (
	"time"

	"github.com/yeomjw0907/catchdeal/internal/model"
)

// dailyStats holds per-day counters. Reset is lazy: whoever touches the
// stats first after midnight clears them. Callers hold the engine mutex.
type dailyStats struct {
	scanCount     int
	purchaseCount int
	date          string
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func (s *dailyStats) rollover() {
	if d := today(); s.date != d {
		s.scanCount = 0
		s.purchaseCount = 0
		s.date = d
	}
}

func (s *dailyStats) view() model.DailyStats {
	return model.DailyStats{
		ScanCount:     s.scanCount,
		PurchaseCount: s.purchaseCount,
		Date:          s.date,
	}
}

func (e *Engine) bumpScan() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.rollover()
	e.stats.scanCount++
}

func (e *Engine) bumpPurchase() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.rollover()
	e.stats.purchaseCount++
}

// DailyStats returns today's counters, resetting them first if the
// date rolled over since the last touch.
func (e *Engine) DailyStats() model.DailyStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.rollover()
	return e.stats.view()
}
