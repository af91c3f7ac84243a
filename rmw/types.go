package rmw

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// GID globally identifies a publisher or client.
type GID [16]byte

// NewGID returns a random GID.
func NewGID() GID {
	return GID(uuid.New())
}

// String returns the hex form of the GID
func (g GID) String() string {
	return hex.EncodeToString(g[:])
}

// IsZero reports whether the GID is unset.
func (g GID) IsZero() bool {
	return g == GID{}
}

// TypeSupport describes the message or service type carried by an
// entity. Messages travel as already serialized bytes, so a type only
// needs a name that both ends agree on.
type TypeSupport interface {
	TypeName() string
}

// MessageType is a TypeSupport identified by its fully qualified name,
// e.g. "std_msgs/msg/String".
type MessageType string

// TypeName returns the type name
func (t MessageType) TypeName() string { return string(t) }

// ServiceType is a TypeSupport for request/response pairs, e.g.
// "example_interfaces/srv/AddTwoInts".
type ServiceType string

// TypeName returns the type name
func (t ServiceType) TypeName() string { return string(t) }

// MessageInfo describes a taken message.
type MessageInfo struct {
	PublisherGID      GID
	SequenceNumber    int64
	SourceTimestamp   time.Time
	ReceivedTimestamp time.Time
}

// RequestID identifies a request: the client that sent it and the
// sequence number the client assigned.
type RequestID struct {
	WriterGID      GID
	SequenceNumber int64
}
