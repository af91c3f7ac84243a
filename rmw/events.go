package rmw

import (
	"fmt"
	"sync"
)

// EventType is a status change an event handle can report.
type EventType int

// Publisher events.
const (
	EventOfferedDeadlineMissed EventType = iota + 1
	EventLivelinessLost
	EventOfferedQoSIncompatible
	EventPublicationMatched
)

// Subscription events.
const (
	EventRequestedDeadlineMissed EventType = iota + 100
	EventLivelinessChanged
	EventRequestedQoSIncompatible
	EventMessageLost
	EventSubscriptionMatched
)

var eventTypeNames = map[EventType]string{
	EventOfferedDeadlineMissed:    "offered deadline missed",
	EventLivelinessLost:           "liveliness lost",
	EventOfferedQoSIncompatible:   "offered qos incompatible",
	EventPublicationMatched:       "publication matched",
	EventRequestedDeadlineMissed:  "requested deadline missed",
	EventLivelinessChanged:        "liveliness changed",
	EventRequestedQoSIncompatible: "requested qos incompatible",
	EventMessageLost:              "message lost",
	EventSubscriptionMatched:      "subscription matched",
}

// String returns the string representation of the event type
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// IsPublisherEvent reports whether t is raised by publishers.
func (t EventType) IsPublisherEvent() bool {
	return t >= EventOfferedDeadlineMissed && t <= EventPublicationMatched
}

// IsSubscriptionEvent reports whether t is raised by subscriptions.
func (t EventType) IsSubscriptionEvent() bool {
	return t >= EventRequestedDeadlineMissed && t <= EventSubscriptionMatched
}

// MessageLostStatus is reported by EventMessageLost.
type MessageLostStatus struct {
	TotalCount       int
	TotalCountChange int
}

// MatchedStatus is reported by EventPublicationMatched and
// EventSubscriptionMatched.
type MatchedStatus struct {
	TotalCount         int
	TotalCountChange   int
	CurrentCount       int
	CurrentCountChange int
}

// EventQueue accumulates the status behind one event handle. It is ready
// while a change has not been taken.
type EventQueue struct {
	Notifier

	eventType EventType

	mu      sync.Mutex
	changed bool
	lost    MessageLostStatus
	matched MatchedStatus
}

// NewEventQueue returns an empty queue for the given event type.
func NewEventQueue(t EventType) *EventQueue {
	return &EventQueue{eventType: t}
}

// Type returns the event type the queue reports.
func (q *EventQueue) Type() EventType { return q.eventType }

// Ready implements Waitable
func (q *EventQueue) Ready() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// RecordLost adds n lost messages.
func (q *EventQueue) RecordLost(n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	q.lost.TotalCount += n
	q.lost.TotalCountChange += n
	q.changed = true
	q.mu.Unlock()
	q.Notify()
}

// RecordMatch records a peer matching (delta > 0) or unmatching (delta < 0).
func (q *EventQueue) RecordMatch(delta int) {
	if delta == 0 {
		return
	}
	q.mu.Lock()
	if delta > 0 {
		q.matched.TotalCount += delta
		q.matched.TotalCountChange += delta
	}
	q.matched.CurrentCount += delta
	q.matched.CurrentCountChange += delta
	q.changed = true
	q.mu.Unlock()
	q.Notify()
}

// Take returns the accumulated status and resets the change counters. The
// boolean is false when nothing changed since the last take.
func (q *EventQueue) Take() (any, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.changed {
		return nil, false, nil
	}
	q.changed = false

	switch q.eventType {
	case EventMessageLost:
		status := q.lost
		q.lost.TotalCountChange = 0
		return status, true, nil
	default:
		status := q.matched
		q.matched.TotalCountChange = 0
		q.matched.CurrentCountChange = 0
		return status, true, nil
	}
}

// SupportedEvent reports whether the bundled transports can raise t.
func SupportedEvent(t EventType) bool {
	switch t {
	case EventMessageLost, EventPublicationMatched, EventSubscriptionMatched:
		return true
	}
	return false
}
