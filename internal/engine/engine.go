// Package engine runs the scan-extract-dissect pipeline: board sources
// are scanned for keyword posts, commerce links are pulled out and
// dissected into products, and category sectors are scanned for deals
// worth purchasing. One engine owns one browser and scans serially.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/driver"
	"github.com/yeomjw0907/catchdeal/internal/model"
	"github.com/yeomjw0907/catchdeal/internal/parse"
	"github.com/yeomjw0907/catchdeal/internal/pkg/dedup"
	"github.com/yeomjw0907/catchdeal/internal/pkg/metrics"
	"github.com/yeomjw0907/catchdeal/internal/pkg/notify"
	"github.com/yeomjw0907/catchdeal/internal/pkg/ratelimit"
	"github.com/yeomjw0907/catchdeal/internal/store"
)

const (
	commerceBase = "https://www.coupang.com"

	// board post lists render inside a nested frame on some builds
	boardFrameSelector = `iframe#cafe_main, iframe[name="cafe_main"]`

	// cancelTick bounds how long a Stop can go unnoticed during waits.
	cancelTick = time.Second

	purchaseStepTimeout = 5 * time.Second
	frameProbeTimeout   = 3 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNoSources      = errors.New("no enabled sources or sectors configured")
	ErrNoCookies      = errors.New("sector scan requires session cookies")
)

// Connector acquires a page driver for one run.
type Connector func(ctx context.Context) (driver.Driver, error)

// Options carries the engine's optional collaborators. Every field may
// be left zero; the engine degrades instead of failing.
type Options struct {
	Sink     Sink
	Store    *store.TradeLogStore
	Dedup    *dedup.Deduplicator
	Limiter  *ratelimit.RateLimiter
	Notifier notify.Notifier
}

// Engine owns the scan loop state: status, daily counters and the
// bounded extracted-link history.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	connect  Connector
	sink     Sink
	store    *store.TradeLogStore
	dedup    *dedup.Deduplicator
	limiter  *ratelimit.RateLimiter
	notifier notify.Notifier
	filter   *parse.Filter

	mu      sync.Mutex
	status  model.EngineStatus
	stats   dailyStats
	history *linkHistory
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger, connect Connector, opts Options) *Engine {
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		connect:  connect,
		sink:     opts.Sink,
		store:    opts.Store,
		dedup:    opts.Dedup,
		limiter:  opts.Limiter,
		notifier: opts.Notifier,
		filter:   parse.NewFilter(cfg.Filter),
		status:   model.StatusIdle,
		stats:    dailyStats{date: today()},
		history:  newLinkHistory(cfg.App.HistoryCap),
	}
}

// Start validates the configuration and launches the scan loop. It
// fails fast when the engine is already running, when nothing is
// enabled, or when sector scanning lacks a session.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}

	sources, sectors := 0, 0
	for _, src := range e.cfg.Sources {
		if src.Enabled {
			sources++
		}
	}
	for _, sec := range e.cfg.Sectors {
		if sec.Enabled {
			sectors++
		}
	}
	if sources == 0 && sectors == 0 {
		e.mu.Unlock()
		return ErrNoSources
	}
	if sectors > 0 && len(e.cfg.Cookies) == 0 {
		e.mu.Unlock()
		return ErrNoCookies
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	e.done = make(chan struct{})
	e.status = model.StatusScanning
	e.mu.Unlock()

	e.emitStatus(model.StatusScanning)
	e.logger.Info("engine starting",
		slog.Int("sources", sources),
		slog.Int("sectors", sectors),
	)

	go e.run(runCtx)
	return nil
}

// Stop cancels the running scan loop. The loop notices within one
// cancel tick; callers can wait on Done.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done reports run completion. Usable only after a successful Start.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.done
}

// Running reports whether a scan loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status returns the current engine status.
func (e *Engine) Status() model.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ExtractedLinks returns a snapshot copy of the link history.
func (e *Engine) ExtractedLinks() []model.ExtractedLink {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.snapshot()
}

func (e *Engine) setStatus(status model.EngineStatus) {
	e.mu.Lock()
	changed := e.status != status
	e.status = status
	e.mu.Unlock()
	if changed {
		e.emitStatus(status)
	}
}

func (e *Engine) run(ctx context.Context) {
	defer func() {
		e.mu.Lock()
		e.running = false
		cancel := e.cancel
		e.cancel = nil
		done := e.done
		e.mu.Unlock()
		// release the derived context even when the loop exits on its own
		if cancel != nil {
			cancel()
		}
		close(done)
	}()

	d, err := e.connect(ctx)
	if err != nil {
		e.logger.Error("driver setup failed", slog.String("error", err.Error()))
		e.emitLog("engine start failed: " + err.Error())
		e.setStatus(model.StatusError)
		return
	}
	defer d.Close()

	if len(e.cfg.Cookies) > 0 {
		cookies := make([]driver.Cookie, 0, len(e.cfg.Cookies))
		for _, c := range e.cfg.Cookies {
			cookies = append(cookies, driver.Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
		}
		if err := d.SetCookies(ctx, cookies); err != nil {
			e.logger.Warn("cookie install failed", slog.String("error", err.Error()))
			e.emitLog("cookie install failed: " + err.Error())
		}
	}

	e.emitLog("engine started")

	for ctx.Err() == nil {
		e.setStatus(model.StatusScanning)

		for _, src := range e.cfg.Sources {
			if ctx.Err() != nil {
				break
			}
			if !src.Enabled {
				continue
			}
			e.scanSource(ctx, d, src)
		}
		for _, sec := range e.cfg.Sectors {
			if ctx.Err() != nil {
				break
			}
			if !sec.Enabled {
				continue
			}
			e.scanSector(ctx, d, sec)
		}

		if ctx.Err() != nil {
			break
		}
		metrics.CyclesTotal.Inc()
		e.emitLog(fmt.Sprintf("cycle complete, next scan in %s", e.cfg.App.CycleDelay))
		if !e.sleepTicks(ctx, e.cfg.App.CycleDelay) {
			break
		}
	}

	if ctx.Err() != nil {
		e.setStatus(model.StatusStopped)
		e.emitLog("engine stopped")
	} else {
		e.setStatus(model.StatusIdle)
	}
}

func (e *Engine) maxAttempts() int {
	if e.cfg.App.MaxDissectAttempts > 0 {
		return e.cfg.App.MaxDissectAttempts
	}
	return 5
}

// sleepTicks waits for total, decomposed into short ticks so a Stop is
// honored quickly even across a long inter-cycle delay.
func (e *Engine) sleepTicks(ctx context.Context, total time.Duration) bool {
	for waited := time.Duration(0); waited < total; {
		tick := cancelTick
		if remaining := total - waited; remaining < tick {
			tick = remaining
		}
		timer := time.NewTimer(tick)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		waited += tick
	}
	return ctx.Err() == nil
}

// settle pauses after navigation so late-hydrating content lands.
func (e *Engine) settle(ctx context.Context) {
	e.sleepTicks(ctx, e.cfg.Browser.SettleDelay)
}

func (e *Engine) scanError(stage string, err error) {
	metrics.ScanErrorsTotal.WithLabelValues(classifyError(err)).Inc()
	e.logger.Warn("scan error",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
}
