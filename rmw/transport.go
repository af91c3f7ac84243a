// Package rmw defines the contract between the client support library and
// a pluggable middleware transport, plus the building blocks the bundled
// transports share: guard conditions, event queues and a generic
// multiplexed wait.
package rmw

import (
	"time"

	"github.com/c360/semrcl/health"
)

// Node is a transport node handle.
type Node interface {
	Name() string
	Namespace() string
}

// Publisher is a transport publisher handle.
type Publisher interface {
	TopicName() string
	GID() GID
	ActualQoS() QoSProfile
	// Publish sends one serialized message.
	Publish(msg []byte) error
	// MatchedCount returns the number of subscriptions receiving the topic.
	MatchedCount() int
}

// Subscription is a transport subscription handle.
type Subscription interface {
	Waitable
	TopicName() string
	ActualQoS() QoSProfile
	// Take removes the oldest message. The boolean is false when none
	// is available.
	Take() ([]byte, MessageInfo, bool, error)
	MatchedCount() int
}

// Client is a transport service client handle.
type Client interface {
	Waitable
	ServiceName() string
	GID() GID
	ActualQoS() QoSProfile
	// SendRequest sends a request and returns its sequence number.
	SendRequest(req []byte) (int64, error)
	// TakeResponse removes the oldest response. The boolean is false when
	// none is available.
	TakeResponse() (RequestID, []byte, bool, error)
	// ServiceIsAvailable reports whether a server is reachable.
	ServiceIsAvailable() (bool, error)
}

// Service is a transport service server handle.
type Service interface {
	Waitable
	ServiceName() string
	ActualQoS() QoSProfile
	// TakeRequest removes the oldest request. The boolean is false when
	// none is available.
	TakeRequest() (RequestID, []byte, bool, error)
	// SendResponse answers the request identified by id.
	SendResponse(id RequestID, resp []byte) error
}

// GuardConditionHandle is a transport guard condition handle.
type GuardConditionHandle interface {
	Waitable
	Trigger() error
}

// Event is a transport event handle.
type Event interface {
	Waitable
	Type() EventType
	// Take returns the status accumulated since the last take. The
	// boolean is false when nothing changed.
	Take() (any, bool, error)
}

// WaitSetHandle is a transport wait context.
type WaitSetHandle interface {
	Identifier() string
	Capacity() int
}

// Transport is the pluggable middleware. Every Create has a matching
// Destroy; handles must not be used after they are destroyed.
type Transport interface {
	// Identifier names the implementation, e.g. "inproc" or "nats".
	Identifier() string

	CreateNode(name, namespace string) (Node, error)
	DestroyNode(node Node) error

	CreatePublisher(node Node, ts TypeSupport, topic string, qos QoSProfile) (Publisher, error)
	DestroyPublisher(node Node, pub Publisher) error

	CreateSubscription(node Node, ts TypeSupport, topic string, qos QoSProfile) (Subscription, error)
	DestroySubscription(node Node, sub Subscription) error

	CreateClient(node Node, ts TypeSupport, service string, qos QoSProfile) (Client, error)
	DestroyClient(node Node, client Client) error

	CreateService(node Node, ts TypeSupport, service string, qos QoSProfile) (Service, error)
	DestroyService(node Node, service Service) error

	CreateGuardCondition() (GuardConditionHandle, error)
	DestroyGuardCondition(gc GuardConditionHandle) error

	// CreatePublisherEvent and CreateSubscriptionEvent return an error
	// with CodeUnsupported for event types the transport cannot raise.
	CreatePublisherEvent(pub Publisher, t EventType) (Event, error)
	CreateSubscriptionEvent(sub Subscription, t EventType) (Event, error)
	DestroyEvent(ev Event) error

	CreateWaitSet(capacity int) (WaitSetHandle, error)
	DestroyWaitSet(ws WaitSetHandle) error

	// Wait blocks until an entry of any array is ready or timeout
	// elapses; nil blocks indefinitely. Entries that are not ready are set
	// to nil. When nothing is ready the error carries CodeTimeout.
	Wait(subs, gcs, services, clients, events *WaitArray, ws WaitSetHandle, timeout *time.Duration) error

	// CountPublishers and CountSubscribers report graph information for a
	// fully qualified topic name.
	CountPublishers(topic string) (int, error)
	CountSubscribers(topic string) (int, error)

	// Shutdown releases transport resources. Handles become unusable.
	Shutdown() error
}

// HealthReporter is implemented by transports that can describe their
// connection state.
type HealthReporter interface {
	Health() health.Status
}
