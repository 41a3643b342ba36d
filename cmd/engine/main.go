package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/driver"
	"github.com/yeomjw0907/catchdeal/internal/engine"
	"github.com/yeomjw0907/catchdeal/internal/pkg/dedup"
	"github.com/yeomjw0907/catchdeal/internal/pkg/logger"
	"github.com/yeomjw0907/catchdeal/internal/pkg/notify"
	"github.com/yeomjw0907/catchdeal/internal/pkg/ratelimit"
	"github.com/yeomjw0907/catchdeal/internal/store"
)

// main runs the headless scan daemon: no control plane, the engine
// starts immediately and runs until SIGINT/SIGTERM or a fatal setup
// error.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logger.NewDefault(cfg.App.LogLevel)
	ctx := context.Background()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Warn("redis unreachable, dedup and rate limiting disabled",
				slog.String("error", err.Error()))
			rdb = nil
		}
	}

	var tradeStore *store.TradeLogStore
	if cfg.MySQL.DSN != "" {
		tradeStore, err = store.Open(cfg.MySQL.DSN, appLogger)
		if err != nil {
			appLogger.Error("open trade store failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var limiter *ratelimit.RateLimiter
	var deduper *dedup.Deduplicator
	if rdb != nil {
		limiter = ratelimit.NewRedisRateLimiter(rdb, appLogger, "", cfg.App.RateLimit, cfg.App.RateBurst)
		deduper = dedup.NewDeduplicator(rdb, time.Duration(cfg.App.DedupWindow)*time.Second)
	}

	connect := func(ctx context.Context) (driver.Driver, error) {
		return driver.Connect(ctx, &cfg.Browser, appLogger)
	}
	eng := engine.New(cfg, appLogger, connect, engine.Options{
		Store:    tradeStore,
		Dedup:    deduper,
		Limiter:  limiter,
		Notifier: notify.NewEmailNotifier(&cfg.Email, appLogger),
	})

	if err := eng.Start(ctx); err != nil {
		appLogger.Error("engine start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:    cfg.App.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		appLogger.Info("metrics server started", slog.String("addr", cfg.App.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("metrics server stopped with error", slog.String("error", err.Error()))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLogger.Info("received os signal", slog.String("signal", sig.String()))
	case <-eng.Done():
		appLogger.Info("engine finished on its own", slog.String("status", string(eng.Status())))
	}

	appLogger.Info("shutting down engine...")
	eng.Stop()
	select {
	case <-eng.Done():
	case <-time.After(10 * time.Second):
		appLogger.Warn("engine did not stop in time")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("metrics shutdown failed", slog.String("error", err.Error()))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			appLogger.Error("close redis failed", slog.String("error", err.Error()))
		}
	}
	if tradeStore != nil {
		if err := tradeStore.Close(); err != nil {
			appLogger.Error("close trade store failed", slog.String("error", err.Error()))
		}
	}
}
