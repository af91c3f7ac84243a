package rcl

import (
	"log/slog"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// SubscriptionOptions configures a Subscription.
type SubscriptionOptions struct {
	QoS rmw.QoSProfile
}

// DefaultSubscriptionOptions returns options with rmw.QoSDefault.
func DefaultSubscriptionOptions() SubscriptionOptions {
	return SubscriptionOptions{QoS: rmw.QoSDefault}
}

// Subscription receives serialized messages from a topic. The zero value
// is uninitialized.
type Subscription struct {
	impl *subscriptionImpl
}

type subscriptionImpl struct {
	context   *Context
	handle    rmw.Subscription
	topic     string
	actualQoS rmw.QoSProfile
	logger    *slog.Logger
}

// Init creates a subscription for topic on node.
func (s *Subscription) Init(node *Node, ts rmw.TypeSupport, topic string, opts *SubscriptionOptions) error {
	if s == nil {
		return errors.New(errors.CodeInvalidArgument, "subscription is nil")
	}
	if opts == nil {
		defaults := DefaultSubscriptionOptions()
		opts = &defaults
	}
	if ts == nil {
		return errors.New(errors.CodeInvalidArgument, "type support is nil")
	}
	if s.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "subscription is already initialized")
	}
	if !node.IsValid() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}

	resolved, err := node.ResolveName(topic, false, false)
	if err != nil {
		return topicResolveError(err)
	}

	ctx := node.impl.context
	handle, err := ctx.Transport().CreateSubscription(node.impl.handle, ts, resolved, opts.QoS)
	if err != nil {
		return createFailed(errors.CodeSubscriptionInvalid, err, "create subscription on %s", resolved)
	}

	s.impl = &subscriptionImpl{
		context:   ctx,
		handle:    handle,
		topic:     resolved,
		actualQoS: handle.ActualQoS(),
		logger:    node.Logger().With("topic", resolved),
	}
	ctx.entityCreated("subscription")
	s.impl.logger.Debug("Subscription initialized", "type", ts.TypeName(), "qos", s.impl.actualQoS)
	return nil
}

// Fini destroys the subscription. It must not be referenced by a wait
// set that is still in use.
func (s *Subscription) Fini(node *Node) error {
	if s == nil || s.impl == nil {
		return nil
	}
	if !node.IsValidExceptContext() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	impl := s.impl
	s.impl = nil

	impl.context.entityDestroyed("subscription")
	if err := impl.context.Transport().DestroySubscription(node.impl.handle, impl.handle); err != nil {
		impl.logger.Error("Failed to destroy subscription", "error", err)
		return convertTransportError(err)
	}
	impl.logger.Debug("Subscription finalized")
	return nil
}

// IsValid reports whether the subscription is initialized and its context
// is still valid.
func (s *Subscription) IsValid() bool {
	return s.IsValidExceptContext() && s.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (s *Subscription) IsValidExceptContext() bool {
	return s != nil && s.impl != nil && s.impl.handle != nil
}

// Take removes the oldest available message. When none is available the
// error carries CodeSubscriptionTakeFailed, which is an expected outcome.
func (s *Subscription) Take() ([]byte, rmw.MessageInfo, error) {
	if !s.IsValid() {
		return nil, rmw.MessageInfo{}, errors.New(errors.CodeSubscriptionInvalid, "subscription is invalid")
	}
	data, info, ok, err := s.impl.handle.Take()
	if err != nil {
		err = convertTransportError(err)
		s.impl.context.metrics().RecordError(errors.CodeOf(err).String())
		return nil, rmw.MessageInfo{}, err
	}
	if !ok {
		return nil, rmw.MessageInfo{}, errors.CodeSubscriptionTakeFailed
	}
	s.impl.context.metrics().RecordTaken(s.impl.topic)
	return data, info, nil
}

// TopicName returns the fully qualified topic, or "" when invalid.
func (s *Subscription) TopicName() string {
	if !s.IsValidExceptContext() {
		return ""
	}
	return s.impl.topic
}

// ActualQoS returns the profile the transport applied.
func (s *Subscription) ActualQoS() rmw.QoSProfile {
	if !s.IsValidExceptContext() {
		return rmw.QoSProfile{}
	}
	return s.impl.actualQoS
}

// PublisherCount returns the number of matched publishers.
func (s *Subscription) PublisherCount() (int, error) {
	if !s.IsValid() {
		return 0, errors.New(errors.CodeSubscriptionInvalid, "subscription is invalid")
	}
	return s.impl.handle.MatchedCount(), nil
}

func (s *Subscription) waitable() rmw.Waitable {
	if !s.IsValidExceptContext() {
		return nil
	}
	return s.impl.handle
}
