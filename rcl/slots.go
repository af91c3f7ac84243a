package rcl

import (
	"github.com/c360/semrcl/errors"
)

// slots is the borrowed, fixed-capacity array of one entity kind in a
// wait set. Entries are filled in call order from index 0; the wait set
// never owns what they point to.
type slots[T any] struct {
	kind    string
	entries []*T
	fill    int
}

// resize replaces the storage with capacity n and forgets every entry.
// A capacity of zero releases the storage.
func (s *slots[T]) resize(n int) {
	if n == 0 {
		s.entries = nil
	} else {
		s.entries = make([]*T, n)
	}
	s.fill = 0
}

// add appends e and returns its index. A full array is left untouched.
func (s *slots[T]) add(e *T) (int, error) {
	if s.fill >= len(s.entries) {
		return -1, errors.New(errors.CodeWaitSetFull, "%s array is full (capacity %d)", s.kind, len(s.entries))
	}
	idx := s.fill
	s.entries[idx] = e
	s.fill++
	return idx, nil
}

func (s *slots[T]) clear() {
	clear(s.entries)
	s.fill = 0
}

func (s *slots[T]) size() int {
	return len(s.entries)
}
