package buffer

import (
	stderrors "errors"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = stderrors.New("buffer closed")

// Buffer is a bounded FIFO.
type Buffer[T any] interface {
	// Write adds an item. When the buffer is full the overflow policy
	// decides which item is dropped.
	Write(item T) error

	// Read removes and returns the oldest item.
	Read() (T, bool)

	Len() int
	Cap() int
	IsEmpty() bool

	// Dropped returns how many items the overflow policy has discarded.
	Dropped() uint64

	// Close rejects further writes. Buffered items stay readable.
	Close() error
}

// OverflowPolicy defines which item a full buffer gives up.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest item to make room.
	DropOldest OverflowPolicy = iota

	// DropNewest rejects the incoming item.
	DropNewest
)

// String returns the policy name
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// DropCallback receives each item discarded by the overflow policy. It
// runs outside the buffer lock.
type DropCallback[T any] func(item T)

// Option configures a buffer
type Option[T any] func(*ring[T])

// WithOverflowPolicy sets the overflow behavior. The default is DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(r *ring[T]) { r.policy = policy }
}

// WithDropCallback sets the function told about dropped items
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(r *ring[T]) { r.onDrop = callback }
}

// NewCircularBuffer creates a ring buffer holding up to capacity items. A
// capacity below one is raised to one.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) Buffer[T] {
	r := &ring[T]{items: make([]T, max(capacity, 1))}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}
