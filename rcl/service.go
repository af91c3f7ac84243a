package rcl

import (
	"log/slog"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	QoS rmw.QoSProfile
}

// DefaultServiceOptions returns options with rmw.QoSServicesDefault.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{QoS: rmw.QoSServicesDefault}
}

// Service answers requests from clients. The zero value is uninitialized.
type Service struct {
	impl *serviceImpl
}

type serviceImpl struct {
	context   *Context
	handle    rmw.Service
	service   string
	actualQoS rmw.QoSProfile
	logger    *slog.Logger
}

// Init creates a service server for serviceName on node.
func (s *Service) Init(node *Node, ts rmw.TypeSupport, serviceName string, opts *ServiceOptions) error {
	if s == nil {
		return errors.New(errors.CodeInvalidArgument, "service is nil")
	}
	if opts == nil {
		defaults := DefaultServiceOptions()
		opts = &defaults
	}
	if ts == nil {
		return errors.New(errors.CodeInvalidArgument, "type support is nil")
	}
	if s.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "service is already initialized")
	}
	if !node.IsValid() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}

	resolved, err := node.ResolveName(serviceName, true, false)
	if err != nil {
		return serviceResolveError(err)
	}

	ctx := node.impl.context
	handle, err := ctx.Transport().CreateService(node.impl.handle, ts, resolved, opts.QoS)
	if err != nil {
		return createFailed(errors.CodeServiceInvalid, err, "create service %s", resolved)
	}

	s.impl = &serviceImpl{
		context:   ctx,
		handle:    handle,
		service:   resolved,
		actualQoS: handle.ActualQoS(),
		logger:    node.Logger().With("service", resolved),
	}
	ctx.entityCreated("service")
	s.impl.logger.Debug("Service initialized", "type", ts.TypeName())
	return nil
}

// Fini destroys the service.
func (s *Service) Fini(node *Node) error {
	if s == nil || s.impl == nil {
		return nil
	}
	if !node.IsValidExceptContext() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	impl := s.impl
	s.impl = nil

	impl.context.entityDestroyed("service")
	if err := impl.context.Transport().DestroyService(node.impl.handle, impl.handle); err != nil {
		impl.logger.Error("Failed to destroy service", "error", err)
		return convertTransportError(err)
	}
	impl.logger.Debug("Service finalized")
	return nil
}

// IsValid reports whether the service is initialized and its context is
// still valid.
func (s *Service) IsValid() bool {
	return s.IsValidExceptContext() && s.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (s *Service) IsValidExceptContext() bool {
	return s != nil && s.impl != nil && s.impl.handle != nil
}

// TakeRequest removes the oldest request. When none is available the
// error carries CodeServiceTakeFailed.
func (s *Service) TakeRequest() (rmw.RequestID, []byte, error) {
	if !s.IsValid() {
		return rmw.RequestID{}, nil, errors.New(errors.CodeServiceInvalid, "service is invalid")
	}
	id, data, ok, err := s.impl.handle.TakeRequest()
	if err != nil {
		return rmw.RequestID{}, nil, convertTransportError(err)
	}
	if !ok {
		return rmw.RequestID{}, nil, errors.CodeServiceTakeFailed
	}
	return id, data, nil
}

// SendResponse answers the request identified by id.
func (s *Service) SendResponse(id rmw.RequestID, resp []byte) error {
	if !s.IsValid() {
		return errors.New(errors.CodeServiceInvalid, "service is invalid")
	}
	if err := s.impl.handle.SendResponse(id, resp); err != nil {
		err = convertTransportError(err)
		s.impl.context.metrics().RecordError(errors.CodeOf(err).String())
		return err
	}
	return nil
}

// ServiceName returns the fully qualified service name, or "" when invalid.
func (s *Service) ServiceName() string {
	if !s.IsValidExceptContext() {
		return ""
	}
	return s.impl.service
}

// ActualQoS returns the profile the transport applied.
func (s *Service) ActualQoS() rmw.QoSProfile {
	if !s.IsValidExceptContext() {
		return rmw.QoSProfile{}
	}
	return s.impl.actualQoS
}

func (s *Service) waitable() rmw.Waitable {
	if !s.IsValidExceptContext() {
		return nil
	}
	return s.impl.handle
}
