package engine

import (
	"strings"
)

// classifyError buckets scan errors for metrics. Matching on message
// text is crude but the driver errors carry no typed cause.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "timeout", "deadline exceeded", "context canceled"):
		return "timeout"
	case containsAny(msg, "navigate", "net::", "connection", "refused", "reset"):
		return "navigation"
	case containsAny(msg, "parse"):
		return "parse"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// blockedPage sniffs interstitials that replace real content.
func blockedPage(html string) bool {
	lower := strings.ToLower(html)
	return containsAny(lower,
		"access denied",
		"captcha",
		"자동입력 방지",
		"unusual traffic",
	)
}
