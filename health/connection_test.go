package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConnection(t *testing.T) {
	tests := []struct {
		name    string
		info    ConnectionInfo
		state   State
		message string
	}{
		{
			name:    "connected ignores stale error",
			info:    ConnectionInfo{Connected: true, LastError: "nats: timeout"},
			state:   StateHealthy,
			message: "connected",
		},
		{
			name:    "reconnecting",
			info:    ConnectionInfo{Reconnecting: true},
			state:   StateDegraded,
			message: "reconnecting",
		},
		{
			name:    "disconnected with sanitized error",
			info:    ConnectionInfo{LastError: "dial nats://10.0.0.5:4222 refused"},
			state:   StateUnhealthy,
			message: "disconnected: dial [URL] refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromConnection("nats", tt.info)
			assert.Equal(t, "nats", s.Component)
			assert.Equal(t, tt.state, s.State)
			assert.Equal(t, tt.message, s.Message)
		})
	}
}

func TestFromConnection_Metrics(t *testing.T) {
	last := time.Now()
	s := FromConnection("nats", ConnectionInfo{
		Connected:         true,
		ErrorCount:        3,
		Uptime:            time.Hour,
		MessagesProcessed: 42,
		LastActivity:      last,
	})

	require.NotNil(t, s.Metrics)
	assert.Equal(t, 3, s.Metrics.ErrorCount)
	assert.Equal(t, time.Hour, s.Metrics.Uptime)
	assert.Equal(t, int64(42), s.Metrics.MessagesProcessed)
	assert.Equal(t, last, s.Metrics.LastActivity)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"nothing to hide", "nats: connection closed", "nats: connection closed"},
		{"nats url", "cannot connect to nats://user:pw@localhost:4222", "cannot connect to [URL]"},
		{"several urls", "servers nats://a:4222,nats://b:4222 down", "servers [URL],[URL] down"},
		{"unix path", "failed to open /etc/semrcl/creds.jwt", "failed to open [PATH]"},
		{"leading path", "/var/run/nats.sock missing", "[PATH] missing"},
		{"windows path", `cannot read C:\Users\ops\nats.creds`, "cannot read [PATH]"},
		{"address", "dial tcp 192.168.1.100:4222: refused", "dial tcp [ADDR]: refused"},
		{"token", "auth failed token=s3cr3t", "auth failed token=[REDACTED]"},
		{"password case", "Password: hunter2, retrying", "Password=[REDACTED], retrying"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}
