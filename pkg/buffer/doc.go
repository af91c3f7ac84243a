// Package buffer provides a generic, thread-safe bounded FIFO with a
// configurable overflow policy.
//
// The in-process transport keeps one Buffer per subscription, service and
// client as its history cache. The overflow policy implements the QoS
// history setting:
//
//   - DropOldest: KEEP_LAST, the oldest sample makes room
//   - DropNewest: KEEP_ALL bounded by the resource limit, new samples are
//     rejected while the reader is behind
//
// Either way the drop callback fires with the discarded item so the owner
// can count lost messages and raise events:
//
//	history := buffer.NewCircularBuffer(depth,
//		buffer.WithOverflowPolicy[sample](buffer.DropOldest),
//		buffer.WithDropCallback(func(s sample) { lost.Add(1) }),
//	)
//
//	_ = history.Write(s)
//	s, ok := history.Read()
package buffer
