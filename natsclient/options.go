package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/metric"
)

// ClientOption configures a Client. Options that receive an unusable value
// fail NewClient.
type ClientOption func(*Client) error

func positive(what string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %v", what, d)
	}
	return nil
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics reports connection status and reconnects. Nil disables
// reporting.
func WithMetrics(metrics *metric.Metrics) ClientOption {
	return func(c *Client) error {
		c.metrics = metrics
		return nil
	}
}

// WithName sets the connection name shown by the server
func WithName(name string) ClientOption {
	return func(c *Client) error {
		c.name = name
		return nil
	}
}

// WithClock sets the clock retry backoff and uptime are measured on. Nil
// is rejected.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) error {
		if clk == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.clock = clk
		return nil
	}
}

// WithMaxReconnects bounds reconnection attempts after a connection is
// lost; -1 retries forever.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		if n < -1 {
			return fmt.Errorf("max reconnects must be -1 or more, got %d", n)
		}
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the pause between reconnection attempts
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.reconnectWait = d
		return positive("reconnect wait", d)
	}
}

// WithPingInterval sets how often the server is pinged
func WithPingInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.pingInterval = d
		return positive("ping interval", d)
	}
}

// WithTimeout bounds a connection attempt and requests made without a
// deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.timeout = d
		return positive("timeout", d)
	}
}

// WithDrainTimeout bounds the drain performed by Close
func WithDrainTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.drainTimeout = d
		return positive("drain timeout", d)
	}
}

// WithCredentials authenticates with a user and password
func WithCredentials(username, password string) ClientOption {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithToken authenticates with a token. A token takes precedence over
// credentials.
func WithToken(token string) ClientOption {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithTLS enables TLS. certFile and keyFile give a client certificate and
// must be set together; caFile adds a root CA. Empty paths are skipped.
func WithTLS(certFile, keyFile, caFile string) ClientOption {
	return func(c *Client) error {
		if (certFile == "") != (keyFile == "") {
			return fmt.Errorf("TLS cert and key files must be set together")
		}
		c.tlsEnabled = true
		c.tlsCertFile = certFile
		c.tlsKeyFile = keyFile
		c.tlsCAFile = caFile
		return nil
	}
}
