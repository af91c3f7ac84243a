package rcl

import (
	"log/slog"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// Event delivers status changes of a publisher or subscription, such as
// lost messages or a change in matched peers. The zero value is
// uninitialized.
type Event struct {
	impl *eventImpl
}

type eventImpl struct {
	context   *Context
	handle    rmw.Event
	eventType rmw.EventType
	logger    *slog.Logger
}

// InitPublisherEvent creates an event of type t for pub. Event types the
// transport cannot raise fail with CodeUnsupported.
func (e *Event) InitPublisherEvent(pub *Publisher, t rmw.EventType) error {
	if e == nil {
		return errors.New(errors.CodeInvalidArgument, "event is nil")
	}
	if e.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "event is already initialized")
	}
	if !pub.IsValid() {
		return errors.New(errors.CodePublisherInvalid, "publisher is invalid")
	}
	if !t.IsPublisherEvent() {
		return errors.New(errors.CodeInvalidArgument, "%q is not a publisher event", t)
	}
	handle, err := pub.impl.context.Transport().CreatePublisherEvent(pub.impl.handle, t)
	if err != nil {
		return e.createFailed(err, t)
	}
	e.impl = &eventImpl{
		context:   pub.impl.context,
		handle:    handle,
		eventType: t,
		logger:    pub.impl.logger.With("event", t.String()),
	}
	e.impl.context.entityCreated("event")
	return nil
}

// InitSubscriptionEvent creates an event of type t for sub.
func (e *Event) InitSubscriptionEvent(sub *Subscription, t rmw.EventType) error {
	if e == nil {
		return errors.New(errors.CodeInvalidArgument, "event is nil")
	}
	if e.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "event is already initialized")
	}
	if !sub.IsValid() {
		return errors.New(errors.CodeSubscriptionInvalid, "subscription is invalid")
	}
	if !t.IsSubscriptionEvent() {
		return errors.New(errors.CodeInvalidArgument, "%q is not a subscription event", t)
	}
	handle, err := sub.impl.context.Transport().CreateSubscriptionEvent(sub.impl.handle, t)
	if err != nil {
		return e.createFailed(err, t)
	}
	e.impl = &eventImpl{
		context:   sub.impl.context,
		handle:    handle,
		eventType: t,
		logger:    sub.impl.logger.With("event", t.String()),
	}
	e.impl.context.entityCreated("event")
	return nil
}

func (e *Event) createFailed(err error, t rmw.EventType) error {
	err = convertTransportError(err)
	if errors.CodeOf(err) == errors.CodeUnsupported {
		return err
	}
	return errors.Wrapf(errors.CodeEventInvalid, err, "create %s event", t)
}

// Fini destroys the event. Finalizing an uninitialized event is a no-op.
func (e *Event) Fini() error {
	if e == nil || e.impl == nil {
		return nil
	}
	impl := e.impl
	e.impl = nil

	impl.context.entityDestroyed("event")
	if err := impl.context.Transport().DestroyEvent(impl.handle); err != nil {
		impl.logger.Error("Failed to destroy event", "error", err)
		return convertTransportError(err)
	}
	return nil
}

// IsValid reports whether the event is initialized and its context is
// still valid.
func (e *Event) IsValid() bool {
	return e.IsValidExceptContext() && e.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (e *Event) IsValidExceptContext() bool {
	return e != nil && e.impl != nil && e.impl.handle != nil
}

// Type returns the event type.
func (e *Event) Type() rmw.EventType {
	if !e.IsValidExceptContext() {
		return 0
	}
	return e.impl.eventType
}

// Take returns the status accumulated since the last take, an
// rmw.MessageLostStatus or rmw.MatchedStatus. When nothing changed the
// error carries CodeEventTakeFailed.
func (e *Event) Take() (any, error) {
	if !e.IsValid() {
		return nil, errors.New(errors.CodeEventInvalid, "event is invalid")
	}
	status, ok, err := e.impl.handle.Take()
	if err != nil {
		return nil, convertTransportError(err)
	}
	if !ok {
		return nil, errors.CodeEventTakeFailed
	}
	return status, nil
}

func (e *Event) waitable() rmw.Waitable {
	if !e.IsValidExceptContext() {
		return nil
	}
	return e.impl.handle
}
