package inproc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/pkg/buffer"
	"github.com/c360/semrcl/rmw"
)

type topic struct {
	name string
	pubs map[*publisher]struct{}
	subs map[*subscription]struct{}
}

// topicLocked returns the topic entry for name, creating it. t.mu must be
// held for writing.
func (t *Transport) topicLocked(name string) *topic {
	tp, ok := t.topics[name]
	if !ok {
		tp = &topic{
			name: name,
			pubs: make(map[*publisher]struct{}),
			subs: make(map[*subscription]struct{}),
		}
		t.topics[name] = tp
	}
	return tp
}

func (t *Transport) pruneLocked(tp *topic) {
	if len(tp.pubs) == 0 && len(tp.subs) == 0 {
		delete(t.topics, tp.name)
	}
}

// eventSet holds the event queues created for one entity.
type eventSet struct {
	mu     sync.Mutex
	queues map[*rmw.EventQueue]struct{}
}

func (s *eventSet) add(q *rmw.EventQueue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queues == nil {
		s.queues = make(map[*rmw.EventQueue]struct{})
	}
	s.queues[q] = struct{}{}
}

func (s *eventSet) remove(q *rmw.EventQueue) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queues[q]
	delete(s.queues, q)
	return ok
}

func (s *eventSet) each(t rmw.EventType, fn func(*rmw.EventQueue)) {
	s.mu.Lock()
	queues := make([]*rmw.EventQueue, 0, len(s.queues))
	for q := range s.queues {
		if q.Type() == t {
			queues = append(queues, q)
		}
	}
	s.mu.Unlock()
	for _, q := range queues {
		fn(q)
	}
}

type sample struct {
	data []byte
	info rmw.MessageInfo
}

type publisher struct {
	transport *Transport
	topic     *topic
	gid       rmw.GID
	qos       rmw.QoSProfile
	sequence  atomic.Int64
	events    eventSet
}

func (p *publisher) TopicName() string         { return p.topic.name }
func (p *publisher) GID() rmw.GID              { return p.gid }
func (p *publisher) ActualQoS() rmw.QoSProfile { return p.qos }

func (p *publisher) MatchedCount() int {
	p.transport.mu.RLock()
	defer p.transport.mu.RUnlock()
	return len(p.topic.subs)
}

// Publish copies msg into the history of every matched subscription.
func (p *publisher) Publish(msg []byte) error {
	p.transport.mu.RLock()
	if err := p.transport.checkOpen(); err != nil {
		p.transport.mu.RUnlock()
		return err
	}
	subs := make([]*subscription, 0, len(p.topic.subs))
	for s := range p.topic.subs {
		subs = append(subs, s)
	}
	p.transport.mu.RUnlock()

	info := rmw.MessageInfo{
		PublisherGID:    p.gid,
		SequenceNumber:  p.sequence.Add(1),
		SourceTimestamp: time.Now(),
	}
	for _, s := range subs {
		data := make([]byte, len(msg))
		copy(data, msg)
		s.deliver(sample{data: data, info: info})
	}
	return nil
}

type subscription struct {
	rmw.Notifier

	transport *Transport
	topic     *topic
	qos       rmw.QoSProfile
	history   buffer.Buffer[sample]
	events    eventSet
}

func (s *subscription) TopicName() string         { return s.topic.name }
func (s *subscription) ActualQoS() rmw.QoSProfile { return s.qos }

func (s *subscription) MatchedCount() int {
	s.transport.mu.RLock()
	defer s.transport.mu.RUnlock()
	return len(s.topic.pubs)
}

func (s *subscription) deliver(smp sample) {
	if err := s.history.Write(smp); err != nil {
		return // closed by shutdown or destroy
	}
	s.Notify()
}

func (s *subscription) lost(_ sample) {
	s.transport.metrics.RecordLost(s.topic.name, 1)
	s.events.each(rmw.EventMessageLost, func(q *rmw.EventQueue) { q.RecordLost(1) })
}

// Ready implements rmw.Waitable
func (s *subscription) Ready() bool {
	return !s.history.IsEmpty()
}

// Take returns the oldest sample still within its lifespan.
func (s *subscription) Take() ([]byte, rmw.MessageInfo, bool, error) {
	for {
		smp, ok := s.history.Read()
		if !ok {
			return nil, rmw.MessageInfo{}, false, nil
		}
		now := time.Now()
		if s.qos.Lifespan > 0 && now.Sub(smp.info.SourceTimestamp) > s.qos.Lifespan {
			s.lost(smp)
			continue
		}
		smp.info.ReceivedTimestamp = now
		return smp.data, smp.info, true, nil
	}
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

	t.mu.Lock()
	if err := t.checkOpen(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	tp := t.topicLocked(topicName)
	pub := &publisher{transport: t, topic: tp, gid: rmw.NewGID(), qos: qos.Resolve()}
	tp.pubs[pub] = struct{}{}
	subs := make([]*subscription, 0, len(tp.subs))
	for s := range tp.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.events.each(rmw.EventSubscriptionMatched, func(q *rmw.EventQueue) { q.RecordMatch(1) })
	}

	t.logger.Debug("Created publisher", "topic", topicName, "type", ts.TypeName(), "gid", pub.gid)
	return pub, nil
}

// DestroyPublisher implements rmw.Transport
func (t *Transport) DestroyPublisher(_ rmw.Node, p rmw.Publisher) error {
	pub, ok := p.(*publisher)
	if !ok {
		return mismatched("publisher")
	}

	t.mu.Lock()
	delete(pub.topic.pubs, pub)
	subs := make([]*subscription, 0, len(pub.topic.subs))
	for s := range pub.topic.subs {
		subs = append(subs, s)
	}
	t.pruneLocked(pub.topic)
	t.mu.Unlock()

	for _, s := range subs {
		s.events.each(rmw.EventSubscriptionMatched, func(q *rmw.EventQueue) { q.RecordMatch(-1) })
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

	sub := &subscription{transport: t, qos: qos.Resolve()}
	depth, keepAll := t.history(sub.qos)
	policy := buffer.DropOldest
	if keepAll {
		policy = buffer.DropNewest
	}
	sub.history = buffer.NewCircularBuffer(depth,
		buffer.WithOverflowPolicy[sample](policy),
		buffer.WithDropCallback(sub.lost),
	)

	t.mu.Lock()
	if err := t.checkOpen(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	tp := t.topicLocked(topicName)
	sub.topic = tp
	tp.subs[sub] = struct{}{}
	pubs := make([]*publisher, 0, len(tp.pubs))
	for p := range tp.pubs {
		pubs = append(pubs, p)
	}
	t.mu.Unlock()

	for _, p := range pubs {
		p.events.each(rmw.EventPublicationMatched, func(q *rmw.EventQueue) { q.RecordMatch(1) })
	}

	t.logger.Debug("Created subscription", "topic", topicName, "type", ts.TypeName(), "depth", depth)
	return sub, nil
}

// DestroySubscription implements rmw.Transport
func (t *Transport) DestroySubscription(_ rmw.Node, s rmw.Subscription) error {
	sub, ok := s.(*subscription)
	if !ok {
		return mismatched("subscription")
	}

	t.mu.Lock()
	delete(sub.topic.subs, sub)
	pubs := make([]*publisher, 0, len(sub.topic.pubs))
	for p := range sub.topic.pubs {
		pubs = append(pubs, p)
	}
	t.pruneLocked(sub.topic)
	t.mu.Unlock()

	_ = sub.history.Close()
	sub.Notify()

	for _, p := range pubs {
		p.events.each(rmw.EventPublicationMatched, func(q *rmw.EventQueue) { q.RecordMatch(-1) })
	}
	return nil
}

type event struct {
	*rmw.EventQueue
	owner *eventSet
}

// CreatePublisherEvent implements rmw.Transport
func (t *Transport) CreatePublisherEvent(p rmw.Publisher, et rmw.EventType) (rmw.Event, error) {
	pub, ok := p.(*publisher)
	if !ok {
		return nil, mismatched("publisher")
	}
	if !et.IsPublisherEvent() || !rmw.SupportedEvent(et) {
		return nil, errors.New(errors.CodeUnsupported, "publisher event %q is not supported by %s", et, Identifier)
	}
	q := rmw.NewEventQueue(et)
	pub.events.add(q)
	return &event{EventQueue: q, owner: &pub.events}, nil
}

// CreateSubscriptionEvent implements rmw.Transport
func (t *Transport) CreateSubscriptionEvent(s rmw.Subscription, et rmw.EventType) (rmw.Event, error) {
	sub, ok := s.(*subscription)
	if !ok {
		return nil, mismatched("subscription")
	}
	if !et.IsSubscriptionEvent() || !rmw.SupportedEvent(et) {
		return nil, errors.New(errors.CodeUnsupported, "subscription event %q is not supported by %s", et, Identifier)
	}
	q := rmw.NewEventQueue(et)
	sub.events.add(q)
	return &event{EventQueue: q, owner: &sub.events}, nil
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
