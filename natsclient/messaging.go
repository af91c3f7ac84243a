package natsclient

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/c360/semrcl/errors"
)

// Subscription is a live subscription that can be cancelled.
// *nats.Subscription satisfies it.
type Subscription interface {
	Unsubscribe() error
}

// MsgHandler receives a message together with its reply subject.
type MsgHandler func(ctx context.Context, msg *nats.Msg)

func (c *Client) connected() (*nats.Conn, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// Subscribe delivers messages on subject to handler. Handlers receive ctx
// and run on the subscription's delivery goroutine, one at a time.
func (c *Client) Subscribe(ctx context.Context, subject string, handler MsgHandler) (Subscription, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		c.delivered.Add(1)
		now := c.clock.Now()
		c.lastActivity.Store(&now)
		handler(ctx, msg)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Subscribe", "subscribe "+subject)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub, nil
}

// Publish publishes data to subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	return conn.Publish(subject, data)
}

// PublishRequest publishes data to subject asking for replies on reply.
func (c *Client) PublishRequest(_ context.Context, subject, reply string, data []byte) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	return conn.PublishRequest(subject, reply, data)
}

// Request sends data to subject and waits for a single reply. The wait is
// bounded by the ctx deadline, or the client timeout when ctx has none.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	conn, err := c.connected()
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// NewInbox returns a unique reply subject.
func (c *Client) NewInbox() string {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		return conn.NewRespInbox()
	}
	return nats.NewInbox()
}

// Flush round-trips to the server so earlier publishes are processed.
func (c *Client) Flush(ctx context.Context) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	return conn.FlushWithContext(ctx)
}
