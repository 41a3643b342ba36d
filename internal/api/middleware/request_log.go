// Package middleware holds the gin middleware shared by the control
// plane routes.
package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs request/response metadata. Server errors are
// raised to warn level; scrape and probe endpoints log at debug to
// keep the output readable.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.String("client_ip", c.ClientIP()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}

		switch {
		case status >= 500:
			logger.Warn("http request", attrs...)
		case c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/healthz":
			logger.Debug("http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}
