package rcl

import (
	"log/slog"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	QoS rmw.QoSProfile
}

// DefaultPublisherOptions returns options with rmw.QoSDefault.
func DefaultPublisherOptions() PublisherOptions {
	return PublisherOptions{QoS: rmw.QoSDefault}
}

// Publisher sends serialized messages on a topic. The zero value is
// uninitialized.
type Publisher struct {
	impl *publisherImpl
}

type publisherImpl struct {
	context   *Context
	handle    rmw.Publisher
	topic     string
	actualQoS rmw.QoSProfile
	logger    *slog.Logger
}

// Init creates a publisher for topic on node. The topic is resolved with
// Node.ResolveName; resolution failures are reported as
// CodeTopicNameInvalid, and transport failures as CodePublisherInvalid.
func (p *Publisher) Init(node *Node, ts rmw.TypeSupport, topic string, opts *PublisherOptions) error {
	if p == nil {
		return errors.New(errors.CodeInvalidArgument, "publisher is nil")
	}
	if opts == nil {
		defaults := DefaultPublisherOptions()
		opts = &defaults
	}
	if ts == nil {
		return errors.New(errors.CodeInvalidArgument, "type support is nil")
	}
	if p.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "publisher is already initialized")
	}
	if !node.IsValid() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}

	resolved, err := node.ResolveName(topic, false, false)
	if err != nil {
		return topicResolveError(err)
	}

	ctx := node.impl.context
	handle, err := ctx.Transport().CreatePublisher(node.impl.handle, ts, resolved, opts.QoS)
	if err != nil {
		return createFailed(errors.CodePublisherInvalid, err, "create publisher on %s", resolved)
	}

	p.impl = &publisherImpl{
		context:   ctx,
		handle:    handle,
		topic:     resolved,
		actualQoS: handle.ActualQoS(),
		logger:    node.Logger().With("topic", resolved),
	}
	ctx.entityCreated("publisher")
	p.impl.logger.Debug("Publisher initialized", "type", ts.TypeName(), "qos", p.impl.actualQoS)
	return nil
}

// Fini destroys the publisher. node must still be valid, though its
// context may have been shut down. Finalizing an uninitialized publisher
// is a no-op. The publisher is released even when the transport fails to
// destroy it.
func (p *Publisher) Fini(node *Node) error {
	if p == nil || p.impl == nil {
		return nil
	}
	if !node.IsValidExceptContext() {
		return errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	impl := p.impl
	p.impl = nil

	impl.context.entityDestroyed("publisher")
	if err := impl.context.Transport().DestroyPublisher(node.impl.handle, impl.handle); err != nil {
		impl.logger.Error("Failed to destroy publisher", "error", err)
		return convertTransportError(err)
	}
	impl.logger.Debug("Publisher finalized")
	return nil
}

// IsValid reports whether the publisher is initialized and its context is
// still valid.
func (p *Publisher) IsValid() bool {
	return p.IsValidExceptContext() && p.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (p *Publisher) IsValidExceptContext() bool {
	return p != nil && p.impl != nil && p.impl.handle != nil
}

// Publish sends one serialized message. Safe for concurrent use.
func (p *Publisher) Publish(msg []byte) error {
	if !p.IsValid() {
		return errors.New(errors.CodePublisherInvalid, "publisher is invalid")
	}
	if err := p.impl.handle.Publish(msg); err != nil {
		err = convertTransportError(err)
		p.impl.context.metrics().RecordError(errors.CodeOf(err).String())
		return err
	}
	p.impl.context.metrics().RecordPublished(p.impl.topic)
	return nil
}

// TopicName returns the fully qualified topic, or "" when invalid.
func (p *Publisher) TopicName() string {
	if !p.IsValidExceptContext() {
		return ""
	}
	return p.impl.topic
}

// ActualQoS returns the profile the transport applied.
func (p *Publisher) ActualQoS() rmw.QoSProfile {
	if !p.IsValidExceptContext() {
		return rmw.QoSProfile{}
	}
	return p.impl.actualQoS
}

// GID returns the transport identity of the publisher.
func (p *Publisher) GID() (rmw.GID, error) {
	if !p.IsValidExceptContext() {
		return rmw.GID{}, errors.New(errors.CodePublisherInvalid, "publisher is invalid")
	}
	return p.impl.handle.GID(), nil
}

// SubscriptionCount returns the number of matched subscriptions.
func (p *Publisher) SubscriptionCount() (int, error) {
	if !p.IsValid() {
		return 0, errors.New(errors.CodePublisherInvalid, "publisher is invalid")
	}
	return p.impl.handle.MatchedCount(), nil
}
