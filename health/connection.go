package health

import (
	"regexp"
	"time"
)

// ConnectionInfo is the connection summary a transport reports.
type ConnectionInfo struct {
	Connected    bool
	Reconnecting bool
	LastError    string
	ErrorCount   int
	Uptime       time.Duration

	MessagesProcessed int64
	LastActivity      time.Time
}

// FromConnection converts a transport connection summary to a Status. A
// reconnecting transport is degraded, a disconnected one unhealthy.
func FromConnection(name string, info ConnectionInfo) Status {
	var status Status
	switch {
	case info.Connected:
		status = NewHealthy(name, "connected")
	case info.Reconnecting:
		status = NewDegraded(name, "reconnecting")
	default:
		status = NewUnhealthy(name, "disconnected")
	}
	if info.LastError != "" && !info.Connected {
		status.Message += ": " + Sanitize(info.LastError)
	}

	return status.WithMetrics(&Metrics{
		Uptime:            info.Uptime,
		ErrorCount:        info.ErrorCount,
		MessagesProcessed: info.MessagesProcessed,
		LastActivity:      info.LastActivity,
	})
}

// redactions are applied in order. URLs go first since they contain
// paths and ports.
var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\b(?:nats|tls|wss?|https?)://[^\s,]+`), "[URL]"},
	{regexp.MustCompile(`(?i)\b(password|token|secret|credentials?|nkey|jwt)\s*[:=]\s*[^\s,}]+`), "$1=[REDACTED]"},
	{regexp.MustCompile(`[A-Za-z]:\\[^\s:]+`), "[PATH]"},
	{regexp.MustCompile(`(^|\s)(?:/[\w.-]+)+`), "${1}[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`), "[ADDR]"},
}

// Sanitize strips server URLs, credentials, file paths and addresses from
// an error message so it can be placed in a health report.
func Sanitize(msg string) string {
	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.replacement)
	}
	return msg
}
