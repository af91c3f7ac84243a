package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/health"
	"github.com/c360/semrcl/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

var statusNames = [...]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
	StatusReconnecting: "reconnecting",
	StatusClosed:       "closed",
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Error values returned by the client
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrClosed       = stderrors.New("client is closed")
)

// Client owns one NATS connection for the lifetime of a transport. It
// connects with bounded retries, lets the nats.go library handle
// reconnects afterwards, and keeps the counters health reports are built
// from.
type Client struct {
	url     string
	logger  *slog.Logger
	metrics *metric.Metrics
	clock   clock.Clock

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	name          string

	// cleared on Close
	username string
	password string
	token    string

	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string

	status     atomic.Int32
	failures   atomic.Int32
	reconnects atomic.Int32
	delivered  atomic.Int64
	lastError  atomic.Pointer[string]

	mu           sync.RWMutex
	conn         *nats.Conn
	subs         []*nats.Subscription
	connectedAt  time.Time
	lastActivity atomic.Pointer[time.Time]
}

// NewClient creates a client for url, a comma separated server list. It
// does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		clock:         clock.System(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")

	return c, nil
}

// URL returns the server list the client connects to
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	c.metrics.RecordTransportStatus(s == StatusConnected)
}

func (c *Client) recordError(err error) {
	c.failures.Add(1)
	msg := err.Error()
	c.lastError.Store(&msg)
}

// ConnectionInfo summarizes the connection for health reporting.
func (c *Client) ConnectionInfo() health.ConnectionInfo {
	status := c.Status()
	info := health.ConnectionInfo{
		Connected:         status == StatusConnected,
		Reconnecting:      status == StatusReconnecting,
		ErrorCount:        int(c.failures.Load()),
		MessagesProcessed: c.delivered.Load(),
	}
	if msg := c.lastError.Load(); msg != nil {
		info.LastError = *msg
	}
	if at := c.lastActivity.Load(); at != nil {
		info.LastActivity = *at
	}
	if info.Connected {
		c.mu.RLock()
		info.Uptime = c.clock.Now().Sub(c.connectedAt)
		c.mu.RUnlock()
	}
	return info
}

func (c *Client) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}

	switch {
	case c.token != "":
		opts = append(opts, nats.Token(c.token))
	case c.username != "":
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.tlsEnabled {
		if c.tlsCertFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}
	if c.name != "" {
		opts = append(opts, nats.Name(c.name))
	}
	return opts
}

// Connect makes one connection attempt bounded by ctx and the client
// timeout. Connecting an already connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	switch c.Status() {
	case StatusClosed:
		return errors.WrapInvalid(ErrClosed, "Client", "Connect", "check client state")
	case StatusConnected, StatusReconnecting:
		return nil
	}

	c.setStatus(StatusConnecting)
	c.logger.Debug("Connecting to NATS", "url", c.url)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.natsOptions()...)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			c.recordError(r.err)
			c.setStatus(StatusDisconnected)
			return errors.WrapTransient(r.err, "Client", "Connect", "establish connection")
		}
		c.mu.Lock()
		c.conn = r.conn
		c.connectedAt = c.clock.Now()
		c.mu.Unlock()
	case <-ctx.Done():
		// A connection that completes after cancellation is discarded.
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		c.recordError(ctx.Err())
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

// ConnectWithRetry connects, retrying transient failures with the backoff
// of cfg measured on the client clock. When retries run out the error
// wraps ErrMaxRetriesExceeded.
func (c *Client) ConnectWithRetry(ctx context.Context, cfg errors.RetryConfig) error {
	for attempt := 0; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if !cfg.ShouldRetry(err, attempt) {
			if attempt >= cfg.MaxRetries && errors.IsTransient(err) {
				return fmt.Errorf("%w: %w", errors.ErrMaxRetriesExceeded, err)
			}
			return err
		}

		delay := cfg.BackoffDelay(attempt)
		c.logger.Warn("NATS connect failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Client", "ConnectWithRetry", "wait for retry")
		case <-c.clock.After(delay):
		}
	}
}

// Close unsubscribes everything, drains the connection within the drain
// timeout or the ctx deadline, and forgets the credentials. The client
// cannot be reconnected afterwards. Closing twice is a no-op.
func (c *Client) Close(ctx context.Context) error {
	if ConnectionStatus(c.status.Swap(int32(StatusClosed))) == StatusClosed {
		return nil
	}
	c.metrics.RecordTransportStatus(false)

	c.mu.Lock()
	conn, subs := c.conn, c.subs
	c.conn, c.subs = nil, nil
	c.username, c.password, c.token = "", "", ""
	c.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe "+sub.Subject))
		}
	}
	if conn == nil {
		return stderrors.Join(errs...)
	}

	drainCtx, cancel := context.WithTimeout(ctx, c.drainTimeout)
	defer cancel()
	drained := make(chan error, 1)
	go func() { drained <- conn.Drain() }()

	select {
	case err := <-drained:
		if err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
		}
	case <-drainCtx.Done():
		errs = append(errs, errors.WrapTransient(drainCtx.Err(), "Client", "Close", "drain connection"))
		c.logger.Warn("Drain did not finish, closing", "error", drainCtx.Err())
	}
	conn.Close()

	return stderrors.Join(errs...)
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.recordError(err)
		c.logger.Warn("Disconnected from NATS", "error", err)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusConnected)
	c.reconnects.Add(1)
	c.metrics.RecordTransportReconnect()
	c.mu.Lock()
	c.connectedAt = c.clock.Now()
	c.mu.Unlock()
	c.logger.Info("Reconnected to NATS", "reconnects", c.reconnects.Load())
}

func (c *Client) handleClosed(_ *nats.Conn) {
	if c.Status() != StatusClosed {
		c.setStatus(StatusDisconnected)
	}
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	// Slow consumer and permission errors are not connection failures.
	if sub != nil {
		c.logger.Error("NATS subscription error", "subject", sub.Subject, "error", err)
		return
	}
	c.recordError(err)
	c.logger.Error("NATS error", "error", err)
}
