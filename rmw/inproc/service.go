package inproc

import (
	"sync/atomic"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/pkg/buffer"
	"github.com/c360/semrcl/rmw"
)

// serviceRoute holds the servers answering one service name. Requests go
// to the servers in turn.
type serviceRoute struct {
	name    string
	servers []*service
	next    int
	clients int
}

type request struct {
	id   rmw.RequestID
	data []byte
}

type service struct {
	rmw.Notifier

	transport *Transport
	name      string
	qos       rmw.QoSProfile
	history   buffer.Buffer[request]
}

func (s *service) ServiceName() string       { return s.name }
func (s *service) ActualQoS() rmw.QoSProfile { return s.qos }

// Ready implements rmw.Waitable
func (s *service) Ready() bool { return !s.history.IsEmpty() }

// TakeRequest implements rmw.Service
func (s *service) TakeRequest() (rmw.RequestID, []byte, bool, error) {
	req, ok := s.history.Read()
	if !ok {
		return rmw.RequestID{}, nil, false, nil
	}
	return req.id, req.data, true, nil
}

// SendResponse routes resp to the client that wrote the request. A client
// that has gone away loses the response.
func (s *service) SendResponse(id rmw.RequestID, resp []byte) error {
	s.transport.mu.RLock()
	if err := s.transport.checkOpen(); err != nil {
		s.transport.mu.RUnlock()
		return err
	}
	c, ok := s.transport.clients[id.WriterGID]
	s.transport.mu.RUnlock()

	if !ok {
		s.transport.logger.Debug("Dropping response for unknown client",
			"service", s.name, "client", id.WriterGID, "sequence", id.SequenceNumber)
		return nil
	}

	data := make([]byte, len(resp))
	copy(data, resp)
	if err := c.history.Write(request{id: id, data: data}); err != nil {
		return nil // client destroyed concurrently
	}
	c.Notify()
	return nil
}

type client struct {
	rmw.Notifier

	transport *Transport
	name      string
	gid       rmw.GID
	qos       rmw.QoSProfile
	sequence  atomic.Int64
	history   buffer.Buffer[request]
}

func (c *client) ServiceName() string       { return c.name }
func (c *client) GID() rmw.GID              { return c.gid }
func (c *client) ActualQoS() rmw.QoSProfile { return c.qos }

// Ready implements rmw.Waitable
func (c *client) Ready() bool { return !c.history.IsEmpty() }

// SendRequest hands the request to the next server. Without a server
// the request is lost, as it would be on a network transport.
func (c *client) SendRequest(req []byte) (int64, error) {
	seq := c.sequence.Add(1)

	t := c.transport
	t.mu.Lock()
	if err := t.checkOpen(); err != nil {
		t.mu.Unlock()
		return 0, err
	}
	var target *service
	if route, ok := t.services[c.name]; ok && len(route.servers) > 0 {
		target = route.servers[route.next%len(route.servers)]
		route.next++
	}
	t.mu.Unlock()

	if target == nil {
		t.logger.Debug("No server for request", "service", c.name, "sequence", seq)
		return seq, nil
	}

	data := make([]byte, len(req))
	copy(data, req)
	id := rmw.RequestID{WriterGID: c.gid, SequenceNumber: seq}
	if err := target.history.Write(request{id: id, data: data}); err == nil {
		target.Notify()
	}
	return seq, nil
}

// TakeResponse implements rmw.Client
func (c *client) TakeResponse() (rmw.RequestID, []byte, bool, error) {
	resp, ok := c.history.Read()
	if !ok {
		return rmw.RequestID{}, nil, false, nil
	}
	return resp.id, resp.data, true, nil
}

// ServiceIsAvailable implements rmw.Client
func (c *client) ServiceIsAvailable() (bool, error) {
	c.transport.mu.RLock()
	defer c.transport.mu.RUnlock()
	if err := c.transport.checkOpen(); err != nil {
		return false, err
	}
	route, ok := c.transport.services[c.name]
	return ok && len(route.servers) > 0, nil
}

func (t *Transport) routeLocked(name string) *serviceRoute {
	route, ok := t.services[name]
	if !ok {
		route = &serviceRoute{name: name}
		t.services[name] = route
	}
	return route
}

func (t *Transport) requestHistory(qos rmw.QoSProfile) buffer.Buffer[request] {
	depth, keepAll := t.history(qos)
	policy := buffer.DropOldest
	if keepAll {
		policy = buffer.DropNewest
	}
	return buffer.NewCircularBuffer(depth, buffer.WithOverflowPolicy[request](policy))
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

	c := &client{transport: t, name: serviceName, gid: rmw.NewGID(), qos: qos.Resolve()}
	c.history = t.requestHistory(c.qos)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	t.clients[c.gid] = c
	t.routeLocked(serviceName).clients++

	t.logger.Debug("Created client", "service", serviceName, "type", ts.TypeName(), "gid", c.gid)
	return c, nil
}

// DestroyClient implements rmw.Transport
func (t *Transport) DestroyClient(_ rmw.Node, cl rmw.Client) error {
	c, ok := cl.(*client)
	if !ok {
		return mismatched("client")
	}

	t.mu.Lock()
	delete(t.clients, c.gid)
	if route, ok := t.services[c.name]; ok {
		route.clients--
		t.pruneRouteLocked(route)
	}
	t.mu.Unlock()

	_ = c.history.Close()
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

	s := &service{transport: t, name: serviceName, qos: qos.Resolve()}
	s.history = t.requestHistory(s.qos)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	route := t.routeLocked(serviceName)
	route.servers = append(route.servers, s)

	t.logger.Debug("Created service", "service", serviceName, "type", ts.TypeName())
	return s, nil
}

// DestroyService implements rmw.Transport
func (t *Transport) DestroyService(_ rmw.Node, sv rmw.Service) error {
	s, ok := sv.(*service)
	if !ok {
		return mismatched("service")
	}

	t.mu.Lock()
	if route, ok := t.services[s.name]; ok {
		for i, candidate := range route.servers {
			if candidate == s {
				route.servers = append(route.servers[:i], route.servers[i+1:]...)
				break
			}
		}
		t.pruneRouteLocked(route)
	}
	t.mu.Unlock()

	_ = s.history.Close()
	s.Notify()
	return nil
}

func (t *Transport) pruneRouteLocked(route *serviceRoute) {
	if len(route.servers) == 0 && route.clients <= 0 {
		delete(t.services, route.name)
	}
}
