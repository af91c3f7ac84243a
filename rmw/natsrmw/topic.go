package natsrmw

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/natsclient"
	"github.com/c360/semrcl/rmw"
)

type sample struct {
	data []byte
	info rmw.MessageInfo
}

// lostQueues holds the MessageLost event queues of a subscription.
type lostQueues struct {
	mu     sync.Mutex
	queues map[*rmw.EventQueue]struct{}
}

func (l *lostQueues) add(q *rmw.EventQueue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queues == nil {
		l.queues = make(map[*rmw.EventQueue]struct{})
	}
	l.queues[q] = struct{}{}
}

func (l *lostQueues) remove(q *rmw.EventQueue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.queues, q)
}

func (l *lostQueues) record(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for q := range l.queues {
		q.RecordLost(n)
	}
}

type publisher struct {
	transport *Transport
	topic     string
	subject   string
	typeName  string
	gid       rmw.GID
	qos       rmw.QoSProfile
	sequence  atomic.Int64
}

func (p *publisher) TopicName() string         { return p.topic }
func (p *publisher) GID() rmw.GID              { return p.gid }
func (p *publisher) ActualQoS() rmw.QoSProfile { return p.qos }

func (p *publisher) MatchedCount() int {
	n, _ := p.transport.CountSubscribers(p.topic)
	return n
}

// Publish wraps msg in an envelope and sends it on the topic subject.
func (p *publisher) Publish(msg []byte) error {
	p.transport.mu.RLock()
	err := p.transport.checkOpen()
	p.transport.mu.RUnlock()
	if err != nil {
		return err
	}

	data, err := encode(envelope{
		Kind:     kindMessage,
		Type:     p.typeName,
		Writer:   p.gid,
		Sequence: p.sequence.Add(1),
		Stamp:    time.Now(),
		Data:     msg,
	})
	if err != nil {
		return errors.Wrapf(errors.CodeError, err, "encode message for %s", p.topic)
	}

	ctx, cancel := p.transport.opContext()
	defer cancel()
	if err := p.transport.conn.Publish(ctx, p.subject, data); err != nil {
		return errors.Wrapf(errors.CodeError, err, "publish to %s", p.subject)
	}
	return nil
}

type subscription struct {
	rmw.Notifier

	transport *Transport
	topic     string
	subject   string
	typeName  string
	qos       rmw.QoSProfile
	history   *ring[sample]
	natsSub   natsclient.Subscription
	lostQ     lostQueues
}

func (s *subscription) TopicName() string         { return s.topic }
func (s *subscription) ActualQoS() rmw.QoSProfile { return s.qos }

func (s *subscription) MatchedCount() int {
	n, _ := s.transport.CountPublishers(s.topic)
	return n
}

// handle runs on the NATS delivery goroutine of the subscription.
func (s *subscription) handle(_ context.Context, msg *nats.Msg) {
	env, err := decode(msg.Data)
	if err != nil || env.Kind != kindMessage {
		s.transport.logger.Warn("Dropping malformed message", "subject", msg.Subject, "error", err)
		return
	}
	if env.Type != "" && env.Type != s.typeName {
		s.transport.logger.Warn("Dropping message of unexpected type",
			"topic", s.topic, "expected", s.typeName, "received", env.Type)
		return
	}
	smp := sample{
		data: env.Data,
		info: rmw.MessageInfo{
			PublisherGID:    env.Writer,
			SequenceNumber:  env.Sequence,
			SourceTimestamp: env.Stamp,
		},
	}
	if dropped := s.history.push(smp); dropped > 0 {
		s.lost(dropped)
	}
	s.Notify()
}

func (s *subscription) lost(n int) {
	s.transport.metrics.RecordLost(s.topic, n)
	s.lostQ.record(n)
}

// Ready implements rmw.Waitable
func (s *subscription) Ready() bool {
	return s.history.ready()
}

// Take returns the oldest sample still within its lifespan.
func (s *subscription) Take() ([]byte, rmw.MessageInfo, bool, error) {
	for {
		smp, ok := s.history.pop()
		if !ok {
			return nil, rmw.MessageInfo{}, false, nil
		}
		now := time.Now()
		if s.qos.Lifespan > 0 && now.Sub(smp.info.SourceTimestamp) > s.qos.Lifespan {
			s.lost(1)
			continue
		}
		smp.info.ReceivedTimestamp = now
		return smp.data, smp.info, true, nil
	}
}

func (s *subscription) close() {
	s.history.close()
	s.transport.unsubscribe(s.natsSub, s.subject)
}

// CreatePublisher implements rmw.Transport
func (t *Transport) CreatePublisher(n rmw.Node, ts rmw.TypeSupport, topicName string,
	qos rmw.QoSProfile,
) (rmw.Publisher, error) {
	if _, ok := n.(*node); !ok {
		return nil, mismatched("node")
	}
	if ts == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "type support is nil")
	}

	resolved := qos.Resolve()
	pub := &publisher{
		transport: t,
		topic:     topicName,
		subject:   subjectFor(t.prefix, topicSegment, topicName, resolved.AvoidROSNamespaceConventions),
		typeName:  ts.TypeName(),
		gid:       rmw.NewGID(),
		qos:       resolved,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	t.pubs[topicName]++

	t.logger.Debug("Created publisher", "topic", topicName, "subject", pub.subject, "gid", pub.gid)
	return pub, nil
}

// DestroyPublisher implements rmw.Transport
func (t *Transport) DestroyPublisher(_ rmw.Node, p rmw.Publisher) error {
	pub, ok := p.(*publisher)
	if !ok {
		return mismatched("publisher")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubs[pub.topic]--; t.pubs[pub.topic] <= 0 {
		delete(t.pubs, pub.topic)
	}
	return nil
}

// CreateSubscription implements rmw.Transport
func (t *Transport) CreateSubscription(n rmw.Node, ts rmw.TypeSupport, topicName string,
	qos rmw.QoSProfile,
) (rmw.Subscription, error) {
	if _, ok := n.(*node); !ok {
		return nil, mismatched("node")
	}
	if ts == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "type support is nil")
	}

	resolved := qos.Resolve()
	depth, dropOldest := t.history(resolved)
	sub := &subscription{
		transport: t,
		topic:     topicName,
		subject:   subjectFor(t.prefix, topicSegment, topicName, resolved.AvoidROSNamespaceConventions),
		typeName:  ts.TypeName(),
		qos:       resolved,
		history:   newRing[sample](depth, dropOldest, nil),
	}

	t.mu.RLock()
	err := t.checkOpen()
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	// Handler contexts derive from the subscribe context, so it must
	// live as long as the transport.
	natsSub, err := t.conn.Subscribe(t.ctx, sub.subject, sub.handle)
	if err != nil {
		return nil, errors.Wrapf(errors.CodeError, err, "subscribe to %s", sub.subject)
	}
	sub.natsSub = natsSub

	t.mu.Lock()
	set, ok := t.subs[topicName]
	if !ok {
		set = make(map[*subscription]struct{})
		t.subs[topicName] = set
	}
	set[sub] = struct{}{}
	t.mu.Unlock()

	t.logger.Debug("Created subscription", "topic", topicName, "subject", sub.subject, "depth", depth)
	return sub, nil
}

// DestroySubscription implements rmw.Transport
func (t *Transport) DestroySubscription(_ rmw.Node, s rmw.Subscription) error {
	sub, ok := s.(*subscription)
	if !ok {
		return mismatched("subscription")
	}

	t.mu.Lock()
	if set, ok := t.subs[sub.topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(t.subs, sub.topic)
		}
	}
	t.mu.Unlock()

	sub.close()
	sub.Notify()
	return nil
}

type event struct {
	*rmw.EventQueue
	owner *lostQueues
}

// CreatePublisherEvent implements rmw.Transport. NATS core has no
// delivery feedback, so no publisher event is supported.
func (t *Transport) CreatePublisherEvent(p rmw.Publisher, et rmw.EventType) (rmw.Event, error) {
	if _, ok := p.(*publisher); !ok {
		return nil, mismatched("publisher")
	}
	return nil, errors.New(errors.CodeUnsupported, "publisher event %q is not supported by %s", et, Identifier)
}

// CreateSubscriptionEvent implements rmw.Transport. Only MessageLost is
// supported.
func (t *Transport) CreateSubscriptionEvent(s rmw.Subscription, et rmw.EventType) (rmw.Event, error) {
	sub, ok := s.(*subscription)
	if !ok {
		return nil, mismatched("subscription")
	}
	if et != rmw.EventMessageLost {
		return nil, errors.New(errors.CodeUnsupported, "subscription event %q is not supported by %s", et, Identifier)
	}
	q := rmw.NewEventQueue(et)
	sub.lostQ.add(q)
	return &event{EventQueue: q, owner: &sub.lostQ}, nil
}

// DestroyEvent implements rmw.Transport
func (t *Transport) DestroyEvent(e rmw.Event) error {
	ev, ok := e.(*event)
	if !ok {
		return mismatched("event")
	}
	ev.owner.remove(ev.EventQueue)
	return nil
}
