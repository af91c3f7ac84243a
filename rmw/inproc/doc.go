// Package inproc implements rmw.Transport inside a single process.
//
// Every publisher writes directly into the history of each subscription
// on the same topic. Histories are bounded rings sized from the QoS
// profile: KEEP_LAST drops the oldest sample, KEEP_ALL is bounded by
// DefaultKeepAllLimit and drops new samples. Dropped and expired samples
// are reported through EventMessageLost events and metric.Metrics.
//
// Requests are handed to the servers of a service in turn and carry the
// writer GID and sequence number of the client; responses are routed back
// by that GID. Requests sent while no server exists are lost.
//
// Waits use rmw.WaitSet, so a wait wakes as soon as any entity receives
// data or a guard condition is triggered:
//
//	t := inproc.New(inproc.WithLogger(logger))
//	ctx, err := rcl.Init(rcl.InitOptions{Transport: t})
package inproc
