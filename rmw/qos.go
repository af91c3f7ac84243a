package rmw

import (
	"fmt"
	"time"
)

// HistoryPolicy controls how many samples are kept
type HistoryPolicy int

const (
	HistorySystemDefault HistoryPolicy = iota
	// HistoryKeepLast keeps only the last Depth samples
	HistoryKeepLast
	// HistoryKeepAll keeps every sample up to the transport's limits
	HistoryKeepAll
)

// ReliabilityPolicy controls delivery guarantees
type ReliabilityPolicy int

const (
	ReliabilitySystemDefault ReliabilityPolicy = iota
	ReliabilityReliable
	ReliabilityBestEffort
)

// DurabilityPolicy controls whether late joiners see past samples
type DurabilityPolicy int

const (
	DurabilitySystemDefault DurabilityPolicy = iota
	DurabilityTransientLocal
	DurabilityVolatile
)

// LivelinessPolicy controls how liveliness is asserted
type LivelinessPolicy int

const (
	LivelinessSystemDefault LivelinessPolicy = iota
	LivelinessAutomatic
	LivelinessManualByTopic
)

// DefaultDepth replaces a system-default history depth.
const DefaultDepth = 10

// QoSProfile describes the quality of service of a publisher,
// subscription, client or service. Zero values mean "system default" and
// are replaced by Resolve once an entity is created. Zero durations are
// infinite.
type QoSProfile struct {
	History     HistoryPolicy
	Depth       int
	Reliability ReliabilityPolicy
	Durability  DurabilityPolicy
	Deadline    time.Duration
	Lifespan    time.Duration
	Liveliness  LivelinessPolicy

	LivelinessLeaseDuration time.Duration

	// AvoidROSNamespaceConventions asks the transport to use names as
	// given, without its own topic or service prefixes.
	AvoidROSNamespaceConventions bool
}

// Resolve returns a copy of the profile with every system-default value
// replaced by the concrete value a transport will use.
func (q QoSProfile) Resolve() QoSProfile {
	if q.History == HistorySystemDefault {
		q.History = HistoryKeepLast
	}
	if q.History == HistoryKeepLast && q.Depth <= 0 {
		q.Depth = DefaultDepth
	}
	if q.Reliability == ReliabilitySystemDefault {
		q.Reliability = ReliabilityReliable
	}
	if q.Durability == DurabilitySystemDefault {
		q.Durability = DurabilityVolatile
	}
	if q.Liveliness == LivelinessSystemDefault {
		q.Liveliness = LivelinessAutomatic
	}
	return q
}

// String returns a compact description of the profile
func (q QoSProfile) String() string {
	return fmt.Sprintf("history=%d depth=%d reliability=%d durability=%d", q.History, q.Depth, q.Reliability, q.Durability)
}

// QoSDefault is the profile used for topics when none is given.
var QoSDefault = QoSProfile{
	History:     HistoryKeepLast,
	Depth:       10,
	Reliability: ReliabilityReliable,
	Durability:  DurabilityVolatile,
}

// QoSSensorData favours timeliness over reliability.
var QoSSensorData = QoSProfile{
	History:     HistoryKeepLast,
	Depth:       5,
	Reliability: ReliabilityBestEffort,
	Durability:  DurabilityVolatile,
}

// QoSServicesDefault is the profile used for clients and services.
var QoSServicesDefault = QoSProfile{
	History:     HistoryKeepLast,
	Depth:       10,
	Reliability: ReliabilityReliable,
	Durability:  DurabilityVolatile,
}

// QoSParameterEvents keeps a deep history for parameter event topics.
var QoSParameterEvents = QoSProfile{
	History:     HistoryKeepLast,
	Depth:       1000,
	Reliability: ReliabilityReliable,
	Durability:  DurabilityVolatile,
}

// QoSSystemDefault leaves every policy to the transport.
var QoSSystemDefault = QoSProfile{}
