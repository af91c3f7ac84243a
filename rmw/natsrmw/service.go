package natsrmw

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/natsclient"
	"github.com/c360/semrcl/rmw"
)

type request struct {
	id   rmw.RequestID
	data []byte
}

type service struct {
	rmw.Notifier

	transport *Transport
	name      string
	subject   string
	typeName  string
	qos       rmw.QoSProfile
	history   *ring[request]
	natsSub   natsclient.Subscription

	mu      sync.Mutex
	replies map[rmw.RequestID]string
}

func (s *service) ServiceName() string       { return s.name }
func (s *service) ActualQoS() rmw.QoSProfile { return s.qos }

// handle runs on the NATS delivery goroutine of the service.
func (s *service) handle(ctx context.Context, msg *nats.Msg) {
	env, err := decode(msg.Data)
	if err != nil {
		s.transport.logger.Warn("Dropping malformed request", "subject", msg.Subject, "error", err)
		return
	}

	switch env.Kind {
	case kindPing:
		s.pong(ctx, msg.Reply)
	case kindRequest:
		if msg.Reply == "" {
			s.transport.logger.Warn("Dropping request without reply subject", "service", s.name)
			return
		}
		id := rmw.RequestID{WriterGID: env.Writer, SequenceNumber: env.Sequence}
		s.mu.Lock()
		s.replies[id] = msg.Reply
		s.mu.Unlock()
		if dropped := s.history.push(request{id: id, data: env.Data}); dropped > 0 {
			s.transport.metrics.RecordLost(s.name, dropped)
		}
		s.Notify()
	default:
		s.transport.logger.Debug("Ignoring envelope", "service", s.name, "kind", env.Kind)
	}
}

// forget releases the reply subject of a request discarded from history.
func (s *service) forget(req request) {
	s.mu.Lock()
	delete(s.replies, req.id)
	s.mu.Unlock()
}

func (s *service) pong(ctx context.Context, reply string) {
	if reply == "" {
		return
	}
	data, err := encode(envelope{Kind: kindPong, Type: s.typeName, Stamp: time.Now()})
	if err != nil {
		return
	}
	if err := s.transport.conn.Publish(ctx, reply, data); err != nil {
		s.transport.logger.Debug("Availability reply failed", "service", s.name, "error", err)
	}
}

// Ready implements rmw.Waitable
func (s *service) Ready() bool {
	return s.history.ready()
}

// TakeRequest implements rmw.Service
func (s *service) TakeRequest() (rmw.RequestID, []byte, bool, error) {
	req, ok := s.history.pop()
	if !ok {
		return rmw.RequestID{}, nil, false, nil
	}
	return req.id, req.data, true, nil
}

// SendResponse answers on the reply subject the request arrived with. A
// request that was never taken by this service is dropped.
func (s *service) SendResponse(id rmw.RequestID, resp []byte) error {
	s.mu.Lock()
	reply, ok := s.replies[id]
	delete(s.replies, id)
	s.mu.Unlock()
	if !ok {
		s.transport.logger.Debug("Dropping response for unknown request",
			"service", s.name, "client", id.WriterGID, "sequence", id.SequenceNumber)
		return nil
	}

	data, err := encode(envelope{
		Kind:     kindResponse,
		Type:     s.typeName,
		Writer:   id.WriterGID,
		Sequence: id.SequenceNumber,
		Stamp:    time.Now(),
		Data:     resp,
	})
	if err != nil {
		return errors.Wrapf(errors.CodeError, err, "encode response for %s", s.name)
	}

	ctx, cancel := s.transport.opContext()
	defer cancel()
	if err := s.transport.conn.Publish(ctx, reply, data); err != nil {
		return errors.Wrapf(errors.CodeError, err, "send response for %s", s.name)
	}
	return nil
}

func (s *service) close() {
	s.history.close()
	s.transport.unsubscribe(s.natsSub, s.subject)
}

type response struct {
	id   rmw.RequestID
	data []byte
}

type client struct {
	rmw.Notifier

	transport *Transport
	name      string
	subject   string
	inbox     string
	typeName  string
	gid       rmw.GID
	qos       rmw.QoSProfile
	sequence  atomic.Int64
	history   *ring[response]
	natsSub   natsclient.Subscription
}

func (c *client) ServiceName() string       { return c.name }
func (c *client) GID() rmw.GID              { return c.gid }
func (c *client) ActualQoS() rmw.QoSProfile { return c.qos }

// handle runs on the NATS delivery goroutine of the client inbox.
func (c *client) handle(_ context.Context, msg *nats.Msg) {
	env, err := decode(msg.Data)
	if err != nil || env.Kind != kindResponse {
		c.transport.logger.Warn("Dropping malformed response", "subject", msg.Subject, "error", err)
		return
	}
	if env.Writer != c.gid {
		c.transport.logger.Debug("Dropping response for another client", "service", c.name, "client", env.Writer)
		return
	}
	id := rmw.RequestID{WriterGID: env.Writer, SequenceNumber: env.Sequence}
	if dropped := c.history.push(response{id: id, data: env.Data}); dropped > 0 {
		c.transport.metrics.RecordLost(c.name, dropped)
	}
	c.Notify()
}

// Ready implements rmw.Waitable
func (c *client) Ready() bool {
	return c.history.ready()
}

// SendRequest publishes req with the client inbox as reply subject.
func (c *client) SendRequest(req []byte) (int64, error) {
	c.transport.mu.RLock()
	err := c.transport.checkOpen()
	c.transport.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	seq := c.sequence.Add(1)
	data, err := encode(envelope{
		Kind:     kindRequest,
		Type:     c.typeName,
		Writer:   c.gid,
		Sequence: seq,
		Stamp:    time.Now(),
		Data:     req,
	})
	if err != nil {
		return 0, errors.Wrapf(errors.CodeError, err, "encode request for %s", c.name)
	}

	ctx, cancel := c.transport.opContext()
	defer cancel()
	if err := c.transport.conn.PublishRequest(ctx, c.subject, c.inbox, data); err != nil {
		return 0, errors.Wrapf(errors.CodeError, err, "send request to %s", c.subject)
	}
	return seq, nil
}

// TakeResponse implements rmw.Client
func (c *client) TakeResponse() (rmw.RequestID, []byte, bool, error) {
	resp, ok := c.history.pop()
	if !ok {
		return rmw.RequestID{}, nil, false, nil
	}
	return resp.id, resp.data, true, nil
}

// ServiceIsAvailable sends a ping to the service subject. No responders
// or no answer within the ping timeout both mean unavailable.
func (c *client) ServiceIsAvailable() (bool, error) {
	c.transport.mu.RLock()
	err := c.transport.checkOpen()
	c.transport.mu.RUnlock()
	if err != nil {
		return false, err
	}

	data, err := encode(envelope{Kind: kindPing, Type: c.typeName, Writer: c.gid, Stamp: time.Now()})
	if err != nil {
		return false, errors.Wrapf(errors.CodeError, err, "encode availability ping for %s", c.name)
	}

	ctx, cancel := context.WithTimeout(c.transport.ctx, c.transport.pingTimeout)
	defer cancel()
	reply, err := c.transport.conn.Request(ctx, c.subject, data)
	switch {
	case err == nil:
		env, derr := decode(reply)
		return derr == nil && env.Kind == kindPong, nil
	case stderrors.Is(err, nats.ErrNoResponders),
		stderrors.Is(err, nats.ErrTimeout),
		stderrors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, errors.Wrapf(errors.CodeError, err, "ping service %s", c.name)
	}
}

func (c *client) close() {
	c.history.close()
	c.transport.unsubscribe(c.natsSub, c.inbox)
}

// CreateClient implements rmw.Transport
func (t *Transport) CreateClient(n rmw.Node, ts rmw.TypeSupport, serviceName string,
	qos rmw.QoSProfile,
) (rmw.Client, error) {
	if _, ok := n.(*node); !ok {
		return nil, mismatched("node")
	}
	if ts == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "type support is nil")
	}

	resolved := qos.Resolve()
	depth, dropOldest := t.history(resolved)
	c := &client{
		transport: t,
		name:      serviceName,
		subject:   subjectFor(t.prefix, serviceSegment, serviceName, resolved.AvoidROSNamespaceConventions),
		inbox:     t.conn.NewInbox(),
		typeName:  ts.TypeName(),
		gid:       rmw.NewGID(),
		qos:       resolved,
		history:   newRing[response](depth, dropOldest, nil),
	}

	t.mu.RLock()
	err := t.checkOpen()
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	natsSub, err := t.conn.Subscribe(t.ctx, c.inbox, c.handle)
	if err != nil {
		return nil, errors.Wrapf(errors.CodeError, err, "subscribe to reply inbox for %s", serviceName)
	}
	c.natsSub = natsSub

	t.mu.Lock()
	t.clients[c] = struct{}{}
	t.mu.Unlock()

	t.logger.Debug("Created client", "service", serviceName, "subject", c.subject, "gid", c.gid)
	return c, nil
}

// DestroyClient implements rmw.Transport
func (t *Transport) DestroyClient(_ rmw.Node, cl rmw.Client) error {
	c, ok := cl.(*client)
	if !ok {
		return mismatched("client")
	}
	t.mu.Lock()
	delete(t.clients, c)
	t.mu.Unlock()

	c.close()
	c.Notify()
	return nil
}

// CreateService implements rmw.Transport
func (t *Transport) CreateService(n rmw.Node, ts rmw.TypeSupport, serviceName string,
	qos rmw.QoSProfile,
) (rmw.Service, error) {
	if _, ok := n.(*node); !ok {
		return nil, mismatched("node")
	}
	if ts == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "type support is nil")
	}

	resolved := qos.Resolve()
	depth, dropOldest := t.history(resolved)
	s := &service{
		transport: t,
		name:      serviceName,
		subject:   subjectFor(t.prefix, serviceSegment, serviceName, resolved.AvoidROSNamespaceConventions),
		typeName:  ts.TypeName(),
		qos:       resolved,
		replies:   make(map[rmw.RequestID]string),
	}
	s.history = newRing(depth, dropOldest, s.forget)

	t.mu.RLock()
	err := t.checkOpen()
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	natsSub, err := t.conn.Subscribe(t.ctx, s.subject, s.handle)
	if err != nil {
		return nil, errors.Wrapf(errors.CodeError, err, "subscribe to %s", s.subject)
	}
	s.natsSub = natsSub

	t.mu.Lock()
	t.services[s] = struct{}{}
	t.mu.Unlock()

	t.logger.Debug("Created service", "service", serviceName, "subject", s.subject)
	return s, nil
}

// DestroyService implements rmw.Transport
func (t *Transport) DestroyService(_ rmw.Node, sv rmw.Service) error {
	s, ok := sv.(*service)
	if !ok {
		return mismatched("service")
	}
	t.mu.Lock()
	delete(t.services, s)
	t.mu.Unlock()

	s.close()
	s.Notify()
	return nil
}
