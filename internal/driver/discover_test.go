package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDiscover_FirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/abc"}`)
	}))
	defer srv.Close()

	ws, err := Discover(context.Background(), srv.URL, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if ws != "ws://127.0.0.1:9222/devtools/browser/abc" {
		t.Fatalf("unexpected websocket url %q", ws)
	}
}

func TestDiscover_RetriesUntilReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/late"}`)
	}))
	defer srv.Close()

	ws, err := Discover(context.Background(), srv.URL, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if ws != "ws://127.0.0.1:9222/devtools/browser/late" {
		t.Fatalf("unexpected websocket url %q", ws)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 probes, got %d", got)
	}
}

func TestDiscover_ExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Discover(context.Background(), srv.URL, time.Millisecond, nil)
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if got := calls.Load(); got != discoverAttempts {
		t.Fatalf("expected exactly %d probes, got %d", discoverAttempts, got)
	}
}

func TestDiscover_MissingWebSocketURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"Browser":"Chrome/131.0.0.0"}`)
	}))
	defer srv.Close()

	if _, err := Discover(context.Background(), srv.URL, time.Millisecond, nil); err == nil {
		t.Fatalf("expected error for payload without websocket url")
	}
}

func TestDiscover_CancelledBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, srv.URL, time.Hour, nil)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
