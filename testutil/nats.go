package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semrcl/health"
	"github.com/c360/semrcl/natsclient"
)

// MockNATSClient is a simple in-memory NATS client for testing (core message passing).
// Matches the natsclient.Client methods used by the NATS transport:
// Publish, PublishRequest, Subscribe, Request and NewInbox.
// Thread-safe for concurrent use from multiple goroutines. Like a real
// subscription, each mock subscription delivers messages one at a time.
type MockNATSClient struct {
	mu            sync.RWMutex
	messages      map[string][][]byte
	subscriptions map[string][]*mockSubscription
	closed        bool
	connected     atomic.Bool
	inboxes       atomic.Int64
	delivered     atomic.Int64
}

type mockSubscription struct {
	client  *MockNATSClient
	subject string
	ctx     context.Context
	handler natsclient.MsgHandler
	mu      sync.Mutex // serializes delivery
	active  atomic.Bool
}

// Unsubscribe implements natsclient.Subscription
func (s *mockSubscription) Unsubscribe() error {
	if !s.active.CompareAndSwap(true, false) {
		return nats.ErrBadSubscription
	}
	c := s.client
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subscriptions[s.subject]
	for i, candidate := range subs {
		if candidate == s {
			c.subscriptions[s.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	c := &MockNATSClient{
		messages:      make(map[string][][]byte),
		subscriptions: make(map[string][]*mockSubscription),
	}
	c.connected.Store(true)
	return c
}

// Publish publishes a message to a subject (matches natsclient.Client signature).
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	return c.PublishRequest(ctx, subject, "", data)
}

// PublishRequest publishes a message carrying a reply subject.
func (c *MockNATSClient) PublishRequest(_ context.Context, subject, reply string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if !c.connected.Load() {
		c.mu.Unlock()
		return natsclient.ErrNotConnected
	}

	c.messages[subject] = append(c.messages[subject], data)

	// Copy handlers to avoid holding lock during callbacks
	subs := make([]*mockSubscription, len(c.subscriptions[subject]))
	copy(subs, c.subscriptions[subject])
	c.mu.Unlock()

	for _, sub := range subs {
		payload := make([]byte, len(data))
		copy(payload, data)
		msg := &nats.Msg{Subject: subject, Reply: reply, Data: payload}

		sub.mu.Lock()
		if sub.active.Load() {
			c.delivered.Add(1)
			// Per-message context with 30s timeout (matches real client)
			msgCtx, cancel := context.WithTimeout(sub.ctx, 30*time.Second)
			sub.handler(msgCtx, msg)
			cancel()
		}
		sub.mu.Unlock()
	}

	return nil
}

// Subscribe creates a subscription to a subject (matches natsclient.Client signature).
func (c *MockNATSClient) Subscribe(ctx context.Context, subject string,
	handler natsclient.MsgHandler,
) (natsclient.Subscription, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	sub := &mockSubscription{client: c, subject: subject, ctx: ctx, handler: handler}
	sub.active.Store(true)
	c.subscriptions[subject] = append(c.subscriptions[subject], sub)
	return sub, nil
}

// Request sends data and waits for the first reply, failing with
// nats.ErrNoResponders when nobody is subscribed to subject.
func (c *MockNATSClient) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if c.SubscriberCount(subject) == 0 {
		return nil, nats.ErrNoResponders
	}

	inbox := c.NewInbox()
	replies := make(chan []byte, 1)
	sub, err := c.Subscribe(context.Background(), inbox, func(_ context.Context, msg *nats.Msg) {
		select {
		case replies <- msg.Data:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := c.PublishRequest(ctx, subject, inbox, data); err != nil {
		return nil, err
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return nil, nats.ErrTimeout
	}
}

// NewInbox returns a unique reply subject.
func (c *MockNATSClient) NewInbox() string {
	return fmt.Sprintf("_INBOX.mock.%d", c.inboxes.Add(1))
}

// SubscriberCount returns the number of active subscriptions on subject.
func (c *MockNATSClient) SubscriberCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions[subject])
}

// SetConnected simulates losing or regaining the server connection.
// While disconnected, publishes fail with natsclient.ErrNotConnected.
func (c *MockNATSClient) SetConnected(connected bool) {
	c.connected.Store(connected)
}

// ConnectionInfo reports the simulated connection state.
func (c *MockNATSClient) ConnectionInfo() health.ConnectionInfo {
	connected := c.connected.Load() && !c.IsClosed()
	info := health.ConnectionInfo{
		Connected:         connected,
		MessagesProcessed: c.delivered.Load(),
	}
	if !connected {
		info.LastError = "mock connection lost"
	}
	return info
}

// GetMessages returns all messages for a subject as [][]byte.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := c.messages[subject]
	if msgs == nil {
		return nil
	}
	result := make([][]byte, len(msgs))
	copy(result, msgs)
	return result
}

// GetMessageCount returns the number of messages on a subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// ClearAll clears all messages from all subjects.
func (c *MockNATSClient) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make(map[string][][]byte)
}

// Close closes the mock client.
func (c *MockNATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed returns whether the client is closed.
func (c *MockNATSClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// WaitForMessageCount waits for a specific number of messages (with timeout).
func WaitForMessageCount(t *testing.T, client *MockNATSClient, subject string, count int, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			got := client.GetMessageCount(subject)
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, got)
			return
		case <-ticker.C:
			if client.GetMessageCount(subject) >= count {
				return
			}
		}
	}
}

// AssertMessageReceived checks that a message was received on a subject.
func AssertMessageReceived(t *testing.T, client *MockNATSClient, subject string) {
	t.Helper()

	if len(client.GetMessages(subject)) == 0 {
		t.Fatalf("expected message on subject %s, got none", subject)
	}
}

// AssertNoMessages checks that no messages were received on a subject.
func AssertNoMessages(t *testing.T, client *MockNATSClient, subject string) {
	t.Helper()

	if n := client.GetMessageCount(subject); n > 0 {
		t.Fatalf("expected no messages on subject %s, got %d", subject, n)
	}
}
