package natsrmw

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// ring is the bounded receive history of one entity. The NATS delivery
// goroutine of the entity's subscription is the only producer; takers
// are serialized by takeMu so the queue keeps a single consumer.
type ring[T any] struct {
	q          lfq.SPSC[T]
	depth      int
	dropOldest bool
	onDrop     func(T)

	takeMu  sync.Mutex
	pending atomic.Int32
	lost    atomix.Uint32
	closed  atomix.Uint32
}

// newRing returns a history of depth samples. When full it discards the
// oldest sample if dropOldest is set and the incoming one otherwise;
// onDrop, if not nil, sees every discarded sample.
func newRing[T any](depth int, dropOldest bool, onDrop func(T)) *ring[T] {
	r := &ring[T]{depth: depth, dropOldest: dropOldest, onDrop: onDrop}
	capacity := 2
	for capacity < depth {
		capacity <<= 1
	}
	r.q.Init(capacity)
	return r
}

// push stores v and returns how many samples were discarded to make room
// for it, or v itself when the history is full and keeps everything.
func (r *ring[T]) push(v T) int {
	if r.isClosed() {
		return 0
	}
	dropped := 0
	if int(r.pending.Load()) >= r.depth {
		if !r.dropOldest {
			r.discard(v)
			return 1
		}
		if old, ok := r.pop(); ok {
			r.discard(old)
			dropped++
		}
	}
	if err := r.q.Enqueue(&v); err != nil {
		if iox.IsWouldBlock(err) {
			r.discard(v)
			return dropped + 1
		}
		return dropped
	}
	r.pending.Add(1)
	return dropped
}

func (r *ring[T]) discard(v T) {
	r.lost.Add(1)
	if r.onDrop != nil {
		r.onDrop(v)
	}
}

// pop removes the oldest sample.
func (r *ring[T]) pop() (T, bool) {
	r.takeMu.Lock()
	defer r.takeMu.Unlock()
	v, err := r.q.Dequeue()
	if err != nil {
		var zero T
		return zero, false
	}
	r.pending.Add(-1)
	return v, true
}

func (r *ring[T]) ready() bool {
	return !r.isClosed() && r.pending.Load() > 0
}

func (r *ring[T]) close() {
	r.closed.Add(1)
}

func (r *ring[T]) isClosed() bool {
	return r.closed.Load() != 0
}

// Lost returns the number of samples discarded since creation.
func (r *ring[T]) Lost() uint32 {
	return r.lost.Load()
}
