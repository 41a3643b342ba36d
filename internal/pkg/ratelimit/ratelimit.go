// Package ratelimit paces page navigations through a redis-backed
// token bucket, so every process driving the same browser shares one
// navigation budget.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yeomjw0907/catchdeal/internal/pkg/metrics"
)

// ErrRateLimitTimeout reports that ctx ended while waiting for a
// navigation token.
var ErrRateLimitTimeout = errors.New("rate limit wait timeout")

const (
	defaultBucketKey = "catchdeal:ratelimit:default"

	// retryFloor bounds how tightly waiters poll when redis reports a
	// zero wait hint.
	retryFloor = 50 * time.Millisecond

	// acquireJitter spreads concurrent waiters so they do not retry in
	// lockstep.
	acquireJitter = 10 * time.Millisecond
)

// The bucket is one redis hash: "tokens" holds the current balance,
// "ts" the last refill time in unix milliseconds. The key expires
// after two idle refill windows so abandoned buckets clean themselves
// up.
const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

if rate <= 0 or burst <= 0 then
  return {1, 0, burst}
end

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + (elapsed * rate) / 1000.0)

local allowed = tokens >= requested
local wait = 0
if allowed then
  tokens = tokens - requested
else
  wait = math.ceil((requested - tokens) * 1000.0 / rate)
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, math.ceil((burst / rate) * 1000.0 * 2))

return {allowed and 1 or 0, wait, tokens}
`

// RateLimiter grants navigation tokens at a fixed rate with a burst
// allowance. A nil limiter or a non-positive rate disables limiting.
type RateLimiter struct {
	rdb    *redis.Client
	key    string
	rate   float64
	burst  float64
	logger *slog.Logger
	script *redis.Script
}

// NewRedisRateLimiter builds a limiter on the given bucket key with
// rate tokens per second and burst capacity. An empty key selects the
// shared default bucket.
func NewRedisRateLimiter(rdb *redis.Client, logger *slog.Logger, key string, rate float64, burst float64) *RateLimiter {
	if key == "" {
		key = defaultBucketKey
	}
	return &RateLimiter{
		rdb:    rdb,
		key:    key,
		rate:   rate,
		burst:  burst,
		logger: logger,
		script: redis.NewScript(tokenBucketLua),
	}
}

// Acquire blocks until the bucket grants a navigation token or ctx
// ends, honoring the wait hint redis returns between attempts.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	if r == nil || r.rate <= 0 || r.burst <= 0 {
		return nil
	}

	start := time.Now()
	for {
		granted, waitMs, err := r.reserve(ctx)
		if err != nil {
			return err
		}
		if granted {
			metrics.RateLimitWaitDuration.Observe(time.Since(start).Seconds())
			return nil
		}

		wait := time.Duration(waitMs) * time.Millisecond
		if wait <= 0 {
			wait = retryFloor
		}
		wait += time.Duration(rand.Int63n(int64(acquireJitter)))

		if r.logger != nil {
			r.logger.Debug("navigation token unavailable",
				slog.String("key", r.key),
				slog.Duration("wait", wait),
			)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			metrics.RateLimitWaitDuration.Observe(time.Since(start).Seconds())
			metrics.RateLimitTimeoutTotal.Inc()
			return ErrRateLimitTimeout
		case <-timer.C:
		}
	}
}

// reserve runs one bucket transaction and reports whether a token was
// granted, and if not, how long redis suggests waiting.
func (r *RateLimiter) reserve(ctx context.Context) (bool, int64, error) {
	now := time.Now().UnixMilli()
	res, err := r.script.Run(ctx, r.rdb, []string{r.key}, r.rate, r.burst, now, 1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit eval: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return false, 0, fmt.Errorf("ratelimit invalid result")
	}
	return luaInt(values[0]) == 1, luaInt(values[1]), nil
}

// luaInt tolerates the number shapes go-redis hands back from EVAL.
func luaInt(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if parsed, err := strconv.ParseInt(t, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
