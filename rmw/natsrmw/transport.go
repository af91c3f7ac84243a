package natsrmw

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/health"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/natsclient"
	"github.com/c360/semrcl/rmw"
)

// Identifier names the NATS transport.
const Identifier = "nats"

// Defaults applied by New.
const (
	DefaultPrefix       = "semrcl"
	DefaultKeepAllLimit = 1000
	DefaultTimeout      = 5 * time.Second
	DefaultPingTimeout  = 250 * time.Millisecond
)

// Conn is the part of natsclient.Client the transport needs.
type Conn interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishRequest(ctx context.Context, subject, reply string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler natsclient.MsgHandler) (natsclient.Subscription, error)
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
	NewInbox() string
}

// connectionReporter is implemented by connections that know their state.
type connectionReporter interface {
	ConnectionInfo() health.ConnectionInfo
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics reports dropped messages. Nil disables reporting.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(t *Transport) {
		t.metrics = metrics
	}
}

// WithPrefix sets the first subject token of every topic and service.
func WithPrefix(prefix string) Option {
	return func(t *Transport) {
		if prefix != "" {
			t.prefix = prefix
		}
	}
}

// WithKeepAllLimit sets the history bound used for KEEP_ALL entities.
func WithKeepAllLimit(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.keepAllLimit = n
		}
	}
}

// WithTimeout bounds every publish and subscribe issued to the server.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithPingTimeout bounds the request used by ServiceIsAvailable.
func WithPingTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.pingTimeout = d
		}
	}
}

// Transport is an rmw.Transport carrying messages over NATS core
// subjects. It has no discovery: matched counts, graph counts and
// matched events only reflect entities of this transport instance.
type Transport struct {
	conn         Conn
	logger       *slog.Logger
	metrics      *metric.Metrics
	prefix       string
	keepAllLimit int
	timeout      time.Duration
	pingTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	shutdown bool
	pubs     map[string]int
	subs     map[string]map[*subscription]struct{}
	services map[*service]struct{}
	clients  map[*client]struct{}
	guards   map[*rmw.GuardCondition]struct{}
}

// New creates a NATS transport on an established connection. The
// connection stays owned by the caller and is not closed by Shutdown.
func New(conn Conn, opts ...Option) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		conn:         conn,
		logger:       slog.Default(),
		prefix:       DefaultPrefix,
		keepAllLimit: DefaultKeepAllLimit,
		timeout:      DefaultTimeout,
		pingTimeout:  DefaultPingTimeout,
		ctx:          ctx,
		cancel:       cancel,
		pubs:         make(map[string]int),
		subs:         make(map[string]map[*subscription]struct{}),
		services:     make(map[*service]struct{}),
		clients:      make(map[*client]struct{}),
		guards:       make(map[*rmw.GuardCondition]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("transport", Identifier)
	return t
}

// Identifier implements rmw.Transport
func (t *Transport) Identifier() string { return Identifier }

// Health implements rmw.HealthReporter
func (t *Transport) Health() health.Status {
	t.mu.RLock()
	shutdown := t.shutdown
	t.mu.RUnlock()
	if shutdown {
		return health.NewUnhealthy(Identifier, "transport has been shut down")
	}
	if r, ok := t.conn.(connectionReporter); ok {
		return health.FromConnection(Identifier, r.ConnectionInfo())
	}
	return health.NewHealthy(Identifier, "connection state unknown")
}

type node struct {
	name      string
	namespace string
}

func (n *node) Name() string      { return n.name }
func (n *node) Namespace() string { return n.namespace }

func (t *Transport) checkOpen() error {
	if t.shutdown {
		return errors.New(errors.CodeError, "%s transport has been shut down", Identifier)
	}
	return nil
}

func mismatched(kind string) error {
	return errors.New(errors.CodeMismatchedTransport, "%s was not created by the %s transport", kind, Identifier)
}

// opContext bounds a single server operation.
func (t *Transport) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(t.ctx, t.timeout)
}

func (t *Transport) history(qos rmw.QoSProfile) (int, bool) {
	if qos.History == rmw.HistoryKeepAll {
		return t.keepAllLimit, false
	}
	return qos.Depth, true
}

// CreateNode implements rmw.Transport
func (t *Transport) CreateNode(name, namespace string) (rmw.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	t.logger.Debug("Created node", "name", name, "namespace", namespace)
	return &node{name: name, namespace: namespace}, nil
}

// DestroyNode implements rmw.Transport
func (t *Transport) DestroyNode(n rmw.Node) error {
	if _, ok := n.(*node); !ok {
		return mismatched("node")
	}
	return nil
}

// CreateGuardCondition implements rmw.Transport
func (t *Transport) CreateGuardCondition() (rmw.GuardConditionHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	gc := rmw.NewGuardCondition()
	t.guards[gc] = struct{}{}
	return gc, nil
}

// DestroyGuardCondition implements rmw.Transport
func (t *Transport) DestroyGuardCondition(h rmw.GuardConditionHandle) error {
	gc, ok := h.(*rmw.GuardCondition)
	if !ok {
		return mismatched("guard condition")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.guards, gc)
	return nil
}

// CreateWaitSet implements rmw.Transport
func (t *Transport) CreateWaitSet(capacity int) (rmw.WaitSetHandle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return rmw.NewWaitSet(Identifier, capacity), nil
}

// DestroyWaitSet implements rmw.Transport
func (t *Transport) DestroyWaitSet(ws rmw.WaitSetHandle) error {
	if _, ok := ws.(*rmw.WaitSet); !ok || ws.Identifier() != Identifier {
		return mismatched("wait set")
	}
	return nil
}

// Wait implements rmw.Transport
func (t *Transport) Wait(subs, gcs, services, clients, events *rmw.WaitArray,
	ws rmw.WaitSetHandle, timeout *time.Duration,
) error {
	set, ok := ws.(*rmw.WaitSet)
	if !ok || ws.Identifier() != Identifier {
		return mismatched("wait set")
	}
	return set.Wait(timeout, subs, gcs, services, clients, events)
}

// CountPublishers implements rmw.Transport
func (t *Transport) CountPublishers(topicName string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pubs[topicName], nil
}

// CountSubscribers implements rmw.Transport
func (t *Transport) CountSubscribers(topicName string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[topicName]), nil
}

// Shutdown implements rmw.Transport. Every NATS subscription owned by the
// transport is removed and blocked waits are woken.
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return nil
	}
	t.shutdown = true

	var closers []interface{ close() }
	var notify []interface{ Notify() }
	for _, set := range t.subs {
		for s := range set {
			closers = append(closers, s)
			notify = append(notify, s)
		}
	}
	for s := range t.services {
		closers = append(closers, s)
		notify = append(notify, s)
	}
	for c := range t.clients {
		closers = append(closers, c)
		notify = append(notify, c)
	}
	for gc := range t.guards {
		notify = append(notify, gc)
	}
	t.mu.Unlock()

	for _, c := range closers {
		c.close()
	}
	t.cancel()
	for _, n := range notify {
		n.Notify()
	}
	t.logger.Debug("Transport shut down")
	return nil
}

// unsubscribe removes a NATS subscription, logging failures. Destroy
// paths keep going so local state is always released.
func (t *Transport) unsubscribe(sub natsclient.Subscription, subject string) {
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		t.logger.Debug("Unsubscribe failed", "subject", subject, "error", err)
	}
}
