package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testProductURL = "https://www.coupang.com/np/products/777?src=cafe"

func testDedup(t *testing.T, window time.Duration) (*Deduplicator, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Errorf("close redis: %v", err)
		}
	})
	return NewDeduplicator(rdb, window), s
}

func TestIsDuplicate_SuppressesRepeatedLink(t *testing.T) {
	d, _ := testDedup(t, time.Minute)
	ctx := context.Background()

	dup, err := d.IsDuplicate(ctx, testProductURL)
	if err != nil {
		t.Fatalf("first sighting: %v", err)
	}
	if dup {
		t.Fatal("first sighting must not be suppressed")
	}

	dup, err = d.IsDuplicate(ctx, testProductURL)
	if err != nil {
		t.Fatalf("second sighting: %v", err)
	}
	if !dup {
		t.Fatal("repeat sighting within the window must be suppressed")
	}
}

func TestIsDuplicate_DistinctLinksIndependent(t *testing.T) {
	d, _ := testDedup(t, time.Minute)
	ctx := context.Background()

	if _, err := d.IsDuplicate(ctx, testProductURL); err != nil {
		t.Fatalf("seed first link: %v", err)
	}

	dup, err := d.IsDuplicate(ctx, "https://www.coupang.com/np/products/778")
	if err != nil {
		t.Fatalf("second link: %v", err)
	}
	if dup {
		t.Fatal("a different product link must not be suppressed")
	}
}

func TestIsDuplicate_WindowExpires(t *testing.T) {
	d, s := testDedup(t, time.Minute)
	ctx := context.Background()

	if _, err := d.IsDuplicate(ctx, testProductURL); err != nil {
		t.Fatalf("seed link: %v", err)
	}

	s.FastForward(time.Minute + time.Second)

	dup, err := d.IsDuplicate(ctx, testProductURL)
	if err != nil {
		t.Fatalf("post-expiry sighting: %v", err)
	}
	if dup {
		t.Fatal("link must be fresh again after the window expires")
	}
}

func TestDelete_ClearsSuppression(t *testing.T) {
	d, _ := testDedup(t, time.Minute)
	ctx := context.Background()

	if _, err := d.IsDuplicate(ctx, testProductURL); err != nil {
		t.Fatalf("seed link: %v", err)
	}
	if err := d.Delete(ctx, testProductURL); err != nil {
		t.Fatalf("delete: %v", err)
	}

	dup, err := d.IsDuplicate(ctx, testProductURL)
	if err != nil {
		t.Fatalf("post-delete sighting: %v", err)
	}
	if dup {
		t.Fatal("deleted link must not be suppressed")
	}
}

func TestDeduplicator_NilSafe(t *testing.T) {
	ctx := context.Background()

	var d *Deduplicator
	if dup, err := d.IsDuplicate(ctx, testProductURL); err != nil || dup {
		t.Fatalf("nil deduplicator: dup=%v err=%v", dup, err)
	}
	if err := d.Delete(ctx, testProductURL); err != nil {
		t.Fatalf("nil deduplicator delete: %v", err)
	}

	d = NewDeduplicator(nil, time.Minute)
	if dup, err := d.IsDuplicate(ctx, testProductURL); err != nil || dup {
		t.Fatalf("nil client: dup=%v err=%v", dup, err)
	}
}
