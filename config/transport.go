package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/natsclient"
	"github.com/c360/semrcl/rmw"
	"github.com/c360/semrcl/rmw/inproc"
	"github.com/c360/semrcl/rmw/natsrmw"
)

// CloseFunc releases whatever a transport needed beyond its own Shutdown,
// such as its NATS connection.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// NewTransport builds the transport cfg selects. For NATS it connects
// first, retrying per transport.nats.retry, and the returned CloseFunc
// closes the connection after the transport has been shut down.
func NewTransport(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *metric.Metrics) (rmw.Transport, CloseFunc, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("%w: config is nil", errors.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Transport.Kind {
	case TransportInproc:
		opts := []inproc.Option{inproc.WithLogger(logger), inproc.WithMetrics(metrics)}
		if cfg.Transport.KeepAllLimit > 0 {
			opts = append(opts, inproc.WithKeepAllLimit(cfg.Transport.KeepAllLimit))
		}
		return inproc.New(opts...), noopClose, nil
	case TransportNATS:
		return newNATSTransport(ctx, cfg, logger, metrics)
	default:
		return nil, nil, fmt.Errorf("%w: unknown transport kind %q", errors.ErrInvalidConfig, cfg.Transport.Kind)
	}
}

func newNATSTransport(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *metric.Metrics) (rmw.Transport, CloseFunc, error) {
	n := cfg.Transport.NATS

	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(metrics),
		natsclient.WithMaxReconnects(n.MaxReconnects),
	}
	if n.Name != "" {
		opts = append(opts, natsclient.WithName(n.Name))
	}
	if n.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(n.ReconnectWait))
	}
	if n.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(n.Timeout))
	}
	if n.Username != "" {
		opts = append(opts, natsclient.WithCredentials(n.Username, n.Password))
	}
	if n.Token != "" {
		opts = append(opts, natsclient.WithToken(n.Token))
	}
	if n.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(n.TLS.CertFile, n.TLS.KeyFile, n.TLS.CAFile))
	}

	client, err := natsclient.NewClient(strings.Join(n.URLs, ","), opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := client.ConnectWithRetry(ctx, n.Retry.Policy()); err != nil {
		return nil, nil, errors.WrapTransient(err, "Config", "NewTransport", "connect to NATS")
	}

	trOpts := []natsrmw.Option{
		natsrmw.WithLogger(logger),
		natsrmw.WithMetrics(metrics),
	}
	if n.Prefix != "" {
		trOpts = append(trOpts, natsrmw.WithPrefix(n.Prefix))
	}
	if cfg.Transport.KeepAllLimit > 0 {
		trOpts = append(trOpts, natsrmw.WithKeepAllLimit(cfg.Transport.KeepAllLimit))
	}
	if n.Timeout > 0 {
		trOpts = append(trOpts, natsrmw.WithTimeout(n.Timeout))
	}
	if n.PingTimeout > 0 {
		trOpts = append(trOpts, natsrmw.WithPingTimeout(n.PingTimeout))
	}

	return natsrmw.New(client, trOpts...), client.Close, nil
}
