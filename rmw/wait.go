package rmw

import (
	"time"

	"github.com/c360/semrcl/errors"
)

// WaitArray is the transport-level view of one kind of entity in a wait
// set. Only Entries[:Count] take part in a wait; nil entries are skipped.
// After a wait, entries that were not ready are set to nil.
type WaitArray struct {
	Entries []Waitable
	Count   int
}

// NewWaitArray returns an empty array able to hold capacity entries.
func NewWaitArray(capacity int) *WaitArray {
	return &WaitArray{Entries: make([]Waitable, capacity)}
}

// Clear nils every entry and resets Count.
func (a *WaitArray) Clear() {
	if a == nil {
		return
	}
	clear(a.Entries)
	a.Count = 0
}

// Live returns the entries taking part in the next wait.
func (a *WaitArray) Live() []Waitable {
	if a == nil {
		return nil
	}
	n := min(a.Count, len(a.Entries))
	return a.Entries[:n]
}

// WaitSet is the transport wait context shared by the bundled
// transports. It owns the waker every entity is attached to while a wait
// is in progress.
type WaitSet struct {
	identifier string
	capacity   int
	waker      *Waker
}

// NewWaitSet returns a wait context for at most capacity entities,
// created by the transport named identifier.
func NewWaitSet(identifier string, capacity int) *WaitSet {
	return &WaitSet{identifier: identifier, capacity: capacity, waker: NewWaker()}
}

// Identifier returns the name of the transport that created the wait set.
func (ws *WaitSet) Identifier() string { return ws.identifier }

// Capacity returns the number of entities the wait set was sized for.
func (ws *WaitSet) Capacity() int { return ws.capacity }

// Wait blocks until at least one live entry of arrays is ready, or until
// timeout elapses. A nil timeout blocks indefinitely and a zero timeout
// polls. On return every live entry that is not ready is nil, and ready
// guard conditions are consumed. When nothing is ready the returned error
// carries CodeTimeout.
func (ws *WaitSet) Wait(timeout *time.Duration, arrays ...*WaitArray) error {
	var entries []Waitable
	for _, a := range arrays {
		for _, e := range a.Live() {
			if e != nil {
				entries = append(entries, e)
			}
		}
	}
	if len(entries) > ws.capacity {
		return errors.New(errors.CodeInvalidArgument,
			"wait set holds %d entities but was created for %d", len(entries), ws.capacity)
	}

	ws.waker.drain()
	for _, e := range entries {
		e.Attach(ws.waker)
	}
	defer func() {
		for _, e := range entries {
			e.Detach(ws.waker)
		}
	}()

	var deadline <-chan time.Time
	if timeout != nil && *timeout > 0 {
		timer := time.NewTimer(*timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for !anyReady(entries) {
		if timeout != nil && *timeout <= 0 {
			break
		}
		timedOut := false
		select {
		case <-ws.waker.C():
		case <-deadline:
			timedOut = true
		}
		if timedOut {
			break
		}
	}

	ready := 0
	for _, a := range arrays {
		for i, e := range a.Live() {
			if e == nil {
				continue
			}
			if !e.Ready() {
				a.Entries[i] = nil
				continue
			}
			ready++
			if c, ok := e.(Consumer); ok {
				c.Consume()
			}
		}
	}
	if ready == 0 {
		return errors.New(errors.CodeTimeout, "wait timed out")
	}
	return nil
}

func anyReady(entries []Waitable) bool {
	for _, e := range entries {
		if e.Ready() {
			return true
		}
	}
	return false
}
