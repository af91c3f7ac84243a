package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/c360/semrcl/errors"
)

type ring[T any] struct {
	policy OverflowPolicy
	onDrop DropCallback[T]

	mu     sync.Mutex
	items  []T
	start  int
	count  int
	closed bool

	dropped atomic.Uint64
}

func (r *ring[T]) Write(item T) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.WrapInvalid(ErrClosed, "Buffer", "Write", "write to closed buffer")
	}

	var victim T
	overflow := r.count == len(r.items)
	switch {
	case !overflow:
		r.items[(r.start+r.count)%len(r.items)] = item
		r.count++
	case r.policy == DropNewest:
		victim = item
	default:
		victim = r.items[r.start]
		r.items[r.start] = item
		r.start = (r.start + 1) % len(r.items)
	}
	r.mu.Unlock()

	if overflow {
		r.dropped.Add(1)
		if r.onDrop != nil {
			r.onDrop(victim)
		}
	}
	return nil
}

func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.count == 0 {
		return zero, false
	}
	item := r.items[r.start]
	r.items[r.start] = zero
	r.start = (r.start + 1) % len(r.items)
	r.count--
	return item, true
}

func (r *ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *ring[T]) Cap() int { return len(r.items) }

func (r *ring[T]) IsEmpty() bool { return r.Len() == 0 }

func (r *ring[T]) Dropped() uint64 { return r.dropped.Load() }

func (r *ring[T]) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
