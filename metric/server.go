package metric

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/c360/semrcl/errors"
)

// Server exposes a MetricsRegistry over HTTP on /metrics, with a liveness
// endpoint on /health.
type Server struct {
	addr     string
	registry *MetricsRegistry

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server for addr, e.g. ":9090" or
// "127.0.0.1:0".
func NewServer(addr string, registry *MetricsRegistry) *Server {
	return &Server{addr: addr, registry: registry}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(fmt.Errorf("server already running"), "Server", "Start", "check state")
	}
	if s.registry == nil {
		return errors.WrapFatal(fmt.Errorf("nil registry"), "Server", "Start", "metrics registry not provided")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.registry.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start", "listen on "+s.addr)
	}

	s.listener = listener
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func(srv *http.Server) {
		_ = srv.Serve(listener)
	}(s.server)

	return nil
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting for in-flight scrapes until ctx ends
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.server, s.listener = nil, nil
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapTransient(err, "Server", "Stop", "shut down HTTP server")
	}
	return nil
}
