package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a NATS server in a container plus a Client connected to it
type TestClient struct {
	Client *Client
	URL    string
}

type testConfig struct {
	image        string
	timeout      time.Duration
	startTimeout time.Duration
}

// TestOption configures NewTestClient
type TestOption func(*testConfig)

// WithNATSVersion selects the nats image tag
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) {
		cfg.image = "nats:" + version
	}
}

// WithFastStartup shortens the connection and container start timeouts
func WithFastStartup() TestOption {
	return func(cfg *testConfig) {
		cfg.timeout = 2 * time.Second
		cfg.startTimeout = 10 * time.Second
	}
}

// NewTestClient starts a NATS server with testcontainers and connects a
// Client to it. Both are torn down when the test ends.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := &testConfig{
		image:        "nats:2.11.7-alpine",
		timeout:      5 * time.Second,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/healthz").WithPort("8222/tcp"),
			).WithDeadline(cfg.startTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := containerURL(ctx, container)
	if err != nil {
		t.Fatalf("Failed to resolve NATS container address: %v", err)
	}

	client, err := NewClient(url, WithTimeout(cfg.timeout), WithMaxReconnects(0), WithName(t.Name()))
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	return &TestClient{Client: client, URL: url}
}

func containerURL(ctx context.Context, container testcontainers.Container) (string, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}
