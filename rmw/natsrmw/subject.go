package natsrmw

import (
	"strings"
	"time"

	"github.com/c360/semrcl/codec"
	"github.com/c360/semrcl/rmw"
)

// Subject segments placed between the prefix and the name, following the
// rt/rq/rr convention of DDS based transports.
const (
	topicSegment   = "rt"
	serviceSegment = "rs"
)

// subjectFor maps a fully qualified name such as "/robot/cmd_vel" onto a
// NATS subject such as "semrcl.rt.robot.cmd_vel". ROS names never contain
// dots, so the mapping is reversible.
func subjectFor(prefix, segment, name string, avoidConventions bool) string {
	parts := []string{prefix}
	if !avoidConventions {
		parts = append(parts, segment)
	}
	trimmed := strings.Trim(name, "/")
	if trimmed != "" {
		parts = append(parts, strings.Split(trimmed, "/")...)
	}
	return strings.Join(parts, ".")
}

type envelopeKind uint8

const (
	kindMessage envelopeKind = iota + 1
	kindRequest
	kindResponse
	kindPing
	kindPong
)

// envelope is the CBOR frame around every payload on the wire.
type envelope struct {
	Kind     envelopeKind `cbor:"1,keyasint"`
	Type     string       `cbor:"2,keyasint,omitempty"`
	Writer   rmw.GID      `cbor:"3,keyasint"`
	Sequence int64        `cbor:"4,keyasint"`
	Stamp    time.Time    `cbor:"5,keyasint"`
	Data     []byte       `cbor:"6,keyasint,omitempty"`
}

func encode(env envelope) ([]byte, error) {
	return codec.Marshal(env)
}

func decode(data []byte) (envelope, error) {
	var env envelope
	err := codec.Unmarshal(data, &env)
	return env, err
}
