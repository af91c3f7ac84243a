package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/semrcl/config"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rcl"
)

const shutdownTimeout = 5 * time.Second

// session is an initialized rcl context on the configured transport.
type session struct {
	context  *rcl.Context
	registry *metric.MetricsRegistry
	logger   *slog.Logger
	closeTr  config.CloseFunc
}

// startSession connects the transport and initializes a context on it.
// ctx bounds connection retries only.
func startSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, argv []string) (*session, error) {
	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	tr, closeTr, err := config.NewTransport(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	rctx := &rcl.Context{}
	if err := rctx.Init(rcl.InitOptions{
		Transport: tr,
		Logger:    logger,
		Metrics:   metrics,
		Arguments: argv,
	}); err != nil {
		_ = closeTr(context.Background())
		return nil, err
	}

	logger.Debug("Session started", "transport", tr.Identifier(), "context", rctx.InstanceID())
	return &session{context: rctx, registry: registry, logger: logger, closeTr: closeTr}, nil
}

// sessionArgs puts command line ROS arguments ahead of the configured
// ones so their remap rules match first.
func sessionArgs(cfg *config.Config, rosArgs []string) []string {
	argv := make([]string, 0, len(rosArgs)+len(cfg.Arguments)+1)
	if len(rosArgs) > 0 {
		argv = append(argv, rosArgs...)
		argv = append(argv, "--")
	}
	return append(argv, cfg.Arguments...)
}

func (s *session) close() {
	if err := s.context.Shutdown(); err != nil {
		s.logger.Warn("Context shutdown failed", "error", err)
	}
	if err := s.context.Fini(); err != nil {
		s.logger.Warn("Context fini failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.closeTr(ctx); err != nil {
		s.logger.Warn("Transport close failed", "error", err)
	}
}
