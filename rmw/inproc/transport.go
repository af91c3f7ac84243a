package inproc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rmw"
)

// Identifier names the in-process transport.
const Identifier = "inproc"

// DefaultKeepAllLimit bounds the history of KEEP_ALL entities.
const DefaultKeepAllLimit = 1000

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

// WithKeepAllLimit sets the history bound used for KEEP_ALL entities.
func WithKeepAllLimit(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.keepAllLimit = n
		}
	}
}

// Transport is a process-local rmw.Transport. Publishers deliver
// directly into the history of every matching subscription; requests and
// responses travel the same way keyed by client GID.
type Transport struct {
	logger       *slog.Logger
	metrics      *metric.Metrics
	keepAllLimit int

	mu       sync.RWMutex
	shutdown bool
	topics   map[string]*topic
	services map[string]*serviceRoute
	clients  map[rmw.GID]*client
	guards   map[*rmw.GuardCondition]struct{}
}

// New creates an in-process transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		logger:       slog.Default(),
		keepAllLimit: DefaultKeepAllLimit,
		topics:       make(map[string]*topic),
		services:     make(map[string]*serviceRoute),
		clients:      make(map[rmw.GID]*client),
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

// history maps a resolved QoS profile onto a ring size and whether new
// samples are dropped once it is full.
func (t *Transport) history(qos rmw.QoSProfile) (int, bool) {
	if qos.History == rmw.HistoryKeepAll {
		return t.keepAllLimit, true
	}
	return qos.Depth, false
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
	if tp, ok := t.topics[topicName]; ok {
		return len(tp.pubs), nil
	}
	return 0, nil
}

// CountSubscribers implements rmw.Transport
func (t *Transport) CountSubscribers(topicName string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if tp, ok := t.topics[topicName]; ok {
		return len(tp.subs), nil
	}
	return 0, nil
}

// Shutdown implements rmw.Transport. Histories are closed and every
// waitable is woken so blocked waits return.
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return nil
	}
	t.shutdown = true

	var notify []interface{ Notify() }
	for _, tp := range t.topics {
		for s := range tp.subs {
			_ = s.history.Close()
			notify = append(notify, s)
		}
	}
	for _, route := range t.services {
		for _, s := range route.servers {
			_ = s.history.Close()
			notify = append(notify, s)
		}
	}
	for _, c := range t.clients {
		_ = c.history.Close()
		notify = append(notify, c)
	}
	for gc := range t.guards {
		notify = append(notify, gc)
	}
	t.mu.Unlock()

	for _, n := range notify {
		n.Notify()
	}
	t.logger.Debug("Transport shut down")
	return nil
}
