package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
)

var errDial = fmt.Errorf("dial tcp: connection refused")

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://a:4222,nats://b:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://a:4222,nats://b:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.NotEmpty(t, client.natsOptions())
}

func TestNewClient_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  ClientOption
	}{
		{"zero timeout", WithTimeout(0)},
		{"negative reconnect wait", WithReconnectWait(-time.Second)},
		{"zero ping interval", WithPingInterval(0)},
		{"zero drain timeout", WithDrainTimeout(0)},
		{"max reconnects below -1", WithMaxReconnects(-2)},
		{"cert without key", WithTLS("client.pem", "", "")},
		{"nil clock", WithClock(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient("nats://localhost:4222", tt.opt)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestNatsOptions_Authentication(t *testing.T) {
	plain, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	withToken, err := NewClient("nats://localhost:4222",
		WithCredentials("robot", "secret"),
		WithToken("t0ken"),
		WithTLS("", "", "ca.pem"),
		WithName("semrcl"),
	)
	require.NoError(t, err)

	// token, root CA and name each add one option
	assert.Len(t, withToken.natsOptions(), len(plain.natsOptions())+3)
}

func TestStatus_String(t *testing.T) {
	tests := map[ConnectionStatus]string{
		StatusDisconnected:   "disconnected",
		StatusConnecting:     "connecting",
		StatusConnected:      "connected",
		StatusReconnecting:   "reconnecting",
		StatusClosed:         "closed",
		ConnectionStatus(42): "unknown",
		ConnectionStatus(-1): "unknown",
	}
	for status, want := range tests {
		assert.Equal(t, want, status.String())
	}
}

func TestConnectionInfo(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	info := client.ConnectionInfo()
	assert.False(t, info.Connected)
	assert.Empty(t, info.LastError)
	assert.Zero(t, info.LastActivity)

	client.recordError(errDial)
	info = client.ConnectionInfo()
	assert.Equal(t, 1, info.ErrorCount)
	assert.Equal(t, errDial.Error(), info.LastError)

	client.handleDisconnect(nil, errDial)
	info = client.ConnectionInfo()
	assert.True(t, info.Reconnecting)
	assert.Equal(t, 2, info.ErrorCount)

	client.handleReconnect(nil)
	info = client.ConnectionInfo()
	assert.True(t, info.Connected)
	assert.GreaterOrEqual(t, info.Uptime, time.Duration(0))
}

func TestMetricsWiring(t *testing.T) {
	metrics := metric.NewMetrics()
	client, err := NewClient("nats://localhost:4222", WithMetrics(metrics))
	require.NoError(t, err)

	client.setStatus(StatusConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransportConnected))

	client.handleDisconnect(nil, errDial)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.TransportConnected))
	assert.Equal(t, StatusReconnecting, client.Status())

	client.handleReconnect(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransportReconnects))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransportConnected))

	require.NoError(t, client.Close(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.TransportConnected))
}

func TestHandlersIgnoredAfterClose(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	require.NoError(t, client.Close(context.Background()))

	client.handleDisconnect(nil, errDial)
	client.handleReconnect(nil)
	client.handleClosed(nil)
	assert.Equal(t, StatusClosed, client.Status())
}

func TestConcurrentSafety(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				fn()
			}
		}()
	}
	run(func() { client.handleDisconnect(nil, errDial) })
	run(func() { client.handleReconnect(nil) })
	run(func() { client.recordError(errDial) })
	run(func() { _ = client.ConnectionInfo() })
	run(func() { _ = client.NewInbox() })
	wg.Wait()

	assert.Contains(t, []ConnectionStatus{StatusConnected, StatusReconnecting}, client.Status())
	assert.Equal(t, 200, client.ConnectionInfo().ErrorCount)
}

func TestOperations_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, client.Publish(ctx, "a", nil), ErrNotConnected)
	assert.ErrorIs(t, client.PublishRequest(ctx, "a", "b", nil), ErrNotConnected)
	_, err = client.Request(ctx, "a", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = client.Subscribe(ctx, "a", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, client.Flush(ctx), ErrNotConnected)

	assert.NotEqual(t, client.NewInbox(), client.NewInbox())
	assert.NoError(t, client.Close(ctx))
	assert.NoError(t, client.Close(ctx), "close is idempotent")
}

func TestConnect_Cancelled(t *testing.T) {
	client, err := NewClient("nats://127.0.0.1:1", WithTimeout(time.Second), WithMaxReconnects(0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestConnectWithRetry_GivesUp(t *testing.T) {
	client, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(100*time.Millisecond),
		WithMaxReconnects(0),
	)
	require.NoError(t, err)

	cfg := errors.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = client.ConnectWithRetry(ctx, cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMaxRetriesExceeded))
	assert.Equal(t, 3, client.ConnectionInfo().ErrorCount)
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestConnectWithRetry_BacksOffOnClock(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	client, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(100*time.Millisecond),
		WithMaxReconnects(0),
		WithClock(clk),
	)
	require.NoError(t, err)

	cfg := errors.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}

	done := make(chan error, 1)
	go func() { done <- client.ConnectWithRetry(context.Background(), cfg) }()

	for _, delay := range []time.Duration{time.Second, 2 * time.Second} {
		clk.WaitForTimers(1)
		select {
		case err := <-done:
			t.Fatalf("gave up before the %v backoff elapsed: %v", delay, err)
		default:
		}
		clk.Advance(delay - time.Millisecond)
		assert.Equal(t, 1, clk.PendingTimers(), "backoff of %v fired early", delay)
		clk.Advance(time.Millisecond)
	}

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrMaxRetriesExceeded))
	case <-time.After(5 * time.Second):
		t.Fatal("ConnectWithRetry did not return")
	}
	assert.Equal(t, 3, client.ConnectionInfo().ErrorCount)
}

func TestClosedClientRefusesConnect(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	require.NoError(t, client.Close(context.Background()))

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, errors.IsInvalid(err))
}
