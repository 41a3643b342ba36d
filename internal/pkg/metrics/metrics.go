package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed scan cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catchdeal_cycles_total",
		Help: "Number of completed scan cycles.",
	})

	// PagesNavigatedTotal counts page navigations by page kind.
	PagesNavigatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catchdeal_pages_navigated_total",
		Help: "Number of page navigations.",
	}, []string{"kind"})

	// LinksExtractedTotal counts commerce links pulled out of posts.
	LinksExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catchdeal_links_extracted_total",
		Help: "Number of commerce links extracted from posts.",
	})

	// DissectAttemptsTotal counts dissection attempts by outcome.
	DissectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catchdeal_dissect_attempts_total",
		Help: "Number of product dissection attempts.",
	}, []string{"result"})

	// DissectQueueDepth tracks the current dissection queue length.
	DissectQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catchdeal_dissect_queue_depth",
		Help: "Current depth of the dissection queue.",
	})

	// PurchasesTotal counts completed purchase attempts.
	PurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catchdeal_purchases_total",
		Help: "Number of completed purchases.",
	})

	// ScanErrorsTotal counts scan failures by error kind.
	ScanErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catchdeal_scan_errors_total",
		Help: "Number of scan errors.",
	}, []string{"kind"})

	// RateLimitWaitDuration observes time spent waiting for navigation tokens.
	RateLimitWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catchdeal_ratelimit_wait_seconds",
		Help:    "Time spent waiting on the navigation rate limiter.",
		Buckets: prometheus.DefBuckets,
	})

	// RateLimitTimeoutTotal counts rate-limit waits cut short by cancellation.
	RateLimitTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catchdeal_ratelimit_timeouts_total",
		Help: "Number of rate limiter waits aborted by context cancellation.",
	})
)
