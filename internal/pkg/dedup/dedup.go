// Package dedup suppresses re-dissection of commerce links that were
// already handled within the dedup window. The seen-set lives in
// redis so restarts and sibling processes share it.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catchdeal:dedup:url:"

// Deduplicator marks links as seen with a SETNX whose TTL is the
// dedup window. A nil receiver or nil client suppresses nothing.
type Deduplicator struct {
	rdb    *redis.Client
	window time.Duration
}

// NewDeduplicator builds a deduplicator with the given window. A
// non-positive window falls back to one hour.
func NewDeduplicator(rdb *redis.Client, window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Hour
	}
	return &Deduplicator{
		rdb:    rdb,
		window: window,
	}
}

// IsDuplicate records url as seen and reports whether it already was.
// The first caller within a window owns the link.
func (d *Deduplicator) IsDuplicate(ctx context.Context, url string) (bool, error) {
	if d == nil || d.rdb == nil || url == "" {
		return false, nil
	}
	fresh, err := d.rdb.SetNX(ctx, keyPrefix+fingerprint(url), "1", d.window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !fresh, nil
}

// Delete drops the seen marker so the next IsDuplicate call owns the
// link again. Used when a dissection is abandoned.
func (d *Deduplicator) Delete(ctx context.Context, url string) error {
	if d == nil || d.rdb == nil || url == "" {
		return nil
	}
	if err := d.rdb.Del(ctx, keyPrefix+fingerprint(url)).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

// fingerprint keeps redis keys bounded regardless of URL length.
func fingerprint(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
