package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// discoverAttempts bounds endpoint probing; the browser either
	// comes up within this window or the run fails hard.
	discoverAttempts    = 5
	discoverInterval    = 2 * time.Second
	discoverHTTPTimeout = 3 * time.Second
)

type versionInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Discover resolves the CDP websocket URL of a browser exposing remote
// debugging at baseURL. It probes GET <base>/json/version up to
// discoverAttempts times, waiting interval between attempts.
func Discover(ctx context.Context, baseURL string, interval time.Duration, logger *slog.Logger) (string, error) {
	client := &http.Client{Timeout: discoverHTTPTimeout}
	endpoint := strings.TrimRight(baseURL, "/") + "/json/version"

	var lastErr error
	for attempt := 1; attempt <= discoverAttempts; attempt++ {
		ws, err := probeEndpoint(ctx, client, endpoint)
		if err == nil {
			return ws, nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("debug endpoint probe failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}

		if attempt == discoverAttempts {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", fmt.Errorf("debug endpoint unreachable after %d attempts: %w", discoverAttempts, lastErr)
}

func probeEndpoint(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probe: unexpected status %d", resp.StatusCode)
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode version info: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("version info missing websocket url")
	}
	return info.WebSocketDebuggerURL, nil
}
