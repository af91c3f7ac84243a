package health

import "time"

// State is the coarse condition of a component.
type State string

// Component states, ordered from best to worst
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

var states = [...]State{StateHealthy, StateDegraded, StateUnhealthy}

func (s State) rank() int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

// Status is a point in time health report for a transport, context or
// process. Reports nest: an aggregate keeps the reports it was built from.
type Status struct {
	Component   string    `json:"component"`
	State       State     `json:"state"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains connection counters attached to a status
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

func newStatus(component string, state State, message string) Status {
	return Status{
		Component: component,
		State:     state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewDegraded creates a degraded status
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// NewUnhealthy creates an unhealthy status
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// IsHealthy reports whether the status is healthy
func (s Status) IsHealthy() bool { return s.State == StateHealthy }

// IsDegraded reports whether the status is degraded
func (s Status) IsDegraded() bool { return s.State == StateDegraded }

// IsUnhealthy reports whether the status is unhealthy. A status with an
// unrecognized state counts as unhealthy.
func (s Status) IsUnhealthy() bool { return s.State.rank() == StateUnhealthy.rank() }

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of the status with sub appended. The copy
// never shares its sub-status slice with s.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// Aggregate combines subs into one status for component. The result takes
// the worst state among subs and names the first component in that state.
// With no subs the result is healthy.
func Aggregate(component string, subs ...Status) Status {
	worst := StateHealthy
	culprit := ""
	for _, sub := range subs {
		if r := sub.State.rank(); r > worst.rank() {
			worst = states[r]
			culprit = sub.Component
		}
	}

	status := NewHealthy(component, "all components healthy")
	if worst != StateHealthy {
		status = newStatus(component, worst, culprit+" is "+string(worst))
	}
	if len(subs) > 0 {
		status.SubStatuses = append([]Status(nil), subs...)
	}
	return status
}
