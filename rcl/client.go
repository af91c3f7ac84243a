package rcl

import (
	"log/slog"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	QoS rmw.QoSProfile
}

// DefaultClientOptions returns options with rmw.QoSServicesDefault.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{QoS: rmw.QoSServicesDefault}
}

// Client sends requests to a service. The zero value is uninitialized.
type Client struct {
	impl *clientImpl
}

type clientImpl struct {
	context   *Context
	handle    rmw.Client
	service   string
	actualQoS rmw.QoSProfile
	logger    *slog.Logger
}

// Init creates a client for serviceName on node. Resolution failures are
// reported as CodeServiceNameInvalid.
func (c *Client) Init(node *Node, ts rmw.TypeSupport, serviceName string, opts *ClientOptions) error {
	if c == nil {
		return errors.New(errors.CodeInvalidArgument, "client is nil")
	}
	if opts == nil {
		defaults := DefaultClientOptions()
		opts = &defaults
	}
	if ts == nil {
		return errors.New(errors.CodeInvalidArgument, "type support is nil")
	}
	if c.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "client is already initialized")
	}
	if !node.IsValid() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}

	resolved, err := node.ResolveName(serviceName, true, false)
	if err != nil {
		return serviceResolveError(err)
	}

	ctx := node.impl.context
	handle, err := ctx.Transport().CreateClient(node.impl.handle, ts, resolved, opts.QoS)
	if err != nil {
		return createFailed(errors.CodeClientInvalid, err, "create client for %s", resolved)
	}

	c.impl = &clientImpl{
		context:   ctx,
		handle:    handle,
		service:   resolved,
		actualQoS: handle.ActualQoS(),
		logger:    node.Logger().With("service", resolved),
	}
	ctx.entityCreated("client")
	c.impl.logger.Debug("Client initialized", "type", ts.TypeName())
	return nil
}

// Fini destroys the client.
func (c *Client) Fini(node *Node) error {
	if c == nil || c.impl == nil {
		return nil
	}
	if !node.IsValidExceptContext() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	impl := c.impl
	c.impl = nil

	impl.context.entityDestroyed("client")
	if err := impl.context.Transport().DestroyClient(node.impl.handle, impl.handle); err != nil {
		impl.logger.Error("Failed to destroy client", "error", err)
		return convertTransportError(err)
	}
	impl.logger.Debug("Client finalized")
	return nil
}

// IsValid reports whether the client is initialized and its context is
// still valid.
func (c *Client) IsValid() bool {
	return c.IsValidExceptContext() && c.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (c *Client) IsValidExceptContext() bool {
	return c != nil && c.impl != nil && c.impl.handle != nil
}

// SendRequest sends a serialized request and returns its sequence number.
func (c *Client) SendRequest(req []byte) (int64, error) {
	if !c.IsValid() {
		return 0, errors.New(errors.CodeClientInvalid, "client is invalid")
	}
	seq, err := c.impl.handle.SendRequest(req)
	if err != nil {
		err = convertTransportError(err)
		c.impl.context.metrics().RecordError(errors.CodeOf(err).String())
		return 0, err
	}
	return seq, nil
}

// TakeResponse removes the oldest response. When none is available the
// error carries CodeClientTakeFailed.
func (c *Client) TakeResponse() (rmw.RequestID, []byte, error) {
	if !c.IsValid() {
		return rmw.RequestID{}, nil, errors.New(errors.CodeClientInvalid, "client is invalid")
	}
	id, data, ok, err := c.impl.handle.TakeResponse()
	if err != nil {
		return rmw.RequestID{}, nil, convertTransportError(err)
	}
	if !ok {
		return rmw.RequestID{}, nil, errors.CodeClientTakeFailed
	}
	return id, data, nil
}

// ServiceIsAvailable reports whether a server for the service is reachable.
func (c *Client) ServiceIsAvailable() (bool, error) {
	if !c.IsValid() {
		return false, errors.New(errors.CodeClientInvalid, "client is invalid")
	}
	ok, err := c.impl.handle.ServiceIsAvailable()
	return ok, convertTransportError(err)
}

// ServiceName returns the fully qualified service name, or "" when invalid.
func (c *Client) ServiceName() string {
	if !c.IsValidExceptContext() {
		return ""
	}
	return c.impl.service
}

// ActualQoS returns the profile the transport applied.
func (c *Client) ActualQoS() rmw.QoSProfile {
	if !c.IsValidExceptContext() {
		return rmw.QoSProfile{}
	}
	return c.impl.actualQoS
}

// GID returns the transport identity of the client. Responses carry it
// in their RequestID.
func (c *Client) GID() (rmw.GID, error) {
	if !c.IsValidExceptContext() {
		return rmw.GID{}, errors.New(errors.CodeClientInvalid, "client is invalid")
	}
	return c.impl.handle.GID(), nil
}

func (c *Client) waitable() rmw.Waitable {
	if !c.IsValidExceptContext() {
		return nil
	}
	return c.impl.handle
}
