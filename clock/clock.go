// Package clock provides the time sources used by timers and retry loops.
//
// Production code injects System() or Steady(); tests inject Fake() and
// advance time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	timer.Init(ctx, c, 100*time.Millisecond, nil)
//	c.Advance(100 * time.Millisecond)
//	ready, _ := timer.IsReady() // true
package clock

import "time"

// Type identifies the kind of a Clock.
type Type int

const (
	// TypeUninitialized is the zero value of Type
	TypeUninitialized Type = iota
	// TypeSystem follows wall-clock time and may jump
	TypeSystem
	// TypeSteady is monotonic and never jumps
	TypeSteady
	// TypeFake only moves when advanced
	TypeFake
)

// String returns the string representation of the clock type
func (t Type) String() string {
	switch t {
	case TypeSystem:
		return "system"
	case TypeSteady:
		return "steady"
	case TypeFake:
		return "fake"
	default:
		return "uninitialized"
	}
}

// Clock abstracts time for timers and retry loops.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Type reports what kind of clock this is.
	Type() Type
}

// System returns a Clock backed by the wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (systemClock) Type() Type { return TypeSystem }

// Steady returns a monotonic Clock. Its readings are offsets from the
// moment Steady was called, so wall-clock adjustments never move it.
func Steady() Clock {
	return &steadyClock{base: time.Now()}
}

type steadyClock struct {
	base time.Time
}

func (c *steadyClock) Now() time.Time {
	return time.Unix(0, 0).Add(time.Since(c.base))
}

func (c *steadyClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	time.AfterFunc(d, func() { ch <- c.Now() })
	return ch
}

func (*steadyClock) Type() Type { return TypeSteady }
