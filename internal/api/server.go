// Package api exposes the engine control plane over HTTP: start and
// stop the scan loop, inspect status, stats, extracted links and trade
// history.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yeomjw0907/catchdeal/internal/api/middleware"
	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/driver"
	"github.com/yeomjw0907/catchdeal/internal/engine"
	"github.com/yeomjw0907/catchdeal/internal/model"
	"github.com/yeomjw0907/catchdeal/internal/pkg/dedup"
	"github.com/yeomjw0907/catchdeal/internal/pkg/notify"
	"github.com/yeomjw0907/catchdeal/internal/pkg/ratelimit"
	"github.com/yeomjw0907/catchdeal/internal/store"
)

// maxLogLines bounds the in-memory engine log exposed to clients.
const maxLogLines = 500

// EngineController is the engine surface the HTTP layer drives.
type EngineController interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	Status() model.EngineStatus
	DailyStats() model.DailyStats
	ExtractedLinks() []model.ExtractedLink
}

// Server wires the engine, its collaborators and the gin router.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
	rdb    *redis.Client
	store  *store.TradeLogStore
	engine EngineController
	router *gin.Engine

	mu       sync.Mutex
	logLines []string
}

// NewServer connects the collaborators (redis, trade store, notifier),
// builds the engine in the idle state and registers the routes. MySQL
// and redis are both optional; the engine degrades without them.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, dedup and rate limiting disabled",
				slog.String("error", err.Error()))
			rdb = nil
		}
	}

	var tradeStore *store.TradeLogStore
	if cfg.MySQL.DSN != "" {
		var err error
		tradeStore, err = store.Open(cfg.MySQL.DSN, logger)
		if err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:    cfg,
		logger: logger,
		rdb:    rdb,
		store:  tradeStore,
		router: r,
	}

	var limiter *ratelimit.RateLimiter
	var deduper *dedup.Deduplicator
	if rdb != nil {
		limiter = ratelimit.NewRedisRateLimiter(rdb, logger, "", cfg.App.RateLimit, cfg.App.RateBurst)
		deduper = dedup.NewDeduplicator(rdb, time.Duration(cfg.App.DedupWindow)*time.Second)
	}

	connect := func(ctx context.Context) (driver.Driver, error) {
		return driver.Connect(ctx, &cfg.Browser, logger)
	}
	s.engine = engine.New(cfg, logger, connect, engine.Options{
		Sink:     engine.FuncSink{OnLog: s.appendLog},
		Store:    tradeStore,
		Dedup:    deduper,
		Limiter:  limiter,
		Notifier: notify.NewEmailNotifier(&cfg.Email, logger),
	})

	s.registerRoutes()
	return s, nil
}

// Run starts the HTTP listener on the configured address.
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close stops the engine and releases the connections.
func (s *Server) Close() error {
	if s.engine != nil {
		s.engine.Stop()
	}
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) registerRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	eng := s.router.Group("/api/engine")
	eng.POST("/start", s.handleStart)
	eng.POST("/stop", s.handleStop)
	eng.GET("/status", s.handleStatus)
	eng.GET("/stats", s.handleStats)
	eng.GET("/links", s.handleLinks)
	eng.GET("/logs", s.handleLogs)

	s.router.GET("/api/trades", s.handleTrades)
	s.router.GET("/api/config", s.handleGetConfig)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStart launches the scan loop. The run context is detached from
// the request: the loop outlives the HTTP call.
func (s *Server) handleStart(c *gin.Context) {
	err := s.engine.Start(context.Background())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": string(s.engine.Status())})
	case errors.Is(err, engine.ErrAlreadyRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNoSources), errors.Is(err, engine.ErrNoCookies):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleStop(c *gin.Context) {
	if !s.engine.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "engine not running"})
		return
	}
	s.engine.Stop()
	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  s.engine.Status(),
		"running": s.engine.Running(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.DailyStats())
}

func (s *Server) handleLinks(c *gin.Context) {
	links := s.engine.ExtractedLinks()
	if links == nil {
		links = []model.ExtractedLink{}
	}
	c.JSON(http.StatusOK, links)
}

func (s *Server) handleLogs(c *gin.Context) {
	s.mu.Lock()
	lines := make([]string, len(s.logLines))
	copy(lines, s.logLines)
	s.mu.Unlock()
	c.JSON(http.StatusOK, lines)
}

func (s *Server) handleTrades(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	trades, err := s.store.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if trades == nil {
		trades = []model.TradeLog{}
	}
	c.JSON(http.StatusOK, trades)
}

// handleGetConfig returns the running configuration with secrets
// blanked.
func (s *Server) handleGetConfig(c *gin.Context) {
	view := *s.cfg
	view.App.PaymentPassword = ""
	view.Email.SMTPPass = ""
	view.MySQL.DSN = ""
	view.Redis.Password = ""
	c.JSON(http.StatusOK, view)
}

func (s *Server) appendLog(line string) {
	stamped := time.Now().Format("15:04:05") + " " + line
	s.mu.Lock()
	s.logLines = append(s.logLines, stamped)
	if len(s.logLines) > maxLogLines {
		s.logLines = s.logLines[len(s.logLines)-maxLogLines:]
	}
	s.mu.Unlock()
}
