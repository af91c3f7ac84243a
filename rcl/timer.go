package rcl

import (
	"sync"
	"time"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// TimerCallback runs from Timer.Call with the time elapsed since the
// previous call.
type TimerCallback func(timer *Timer, sinceLastCall time.Duration)

// Timer fires periodically against a clock. Timers have no transport
// primitive of their own: a wait set asks them how long until they are due
// and bounds its timeout accordingly. Each timer owns a guard condition
// that Reset triggers so a blocked wait recomputes its timeout. The zero
// value is uninitialized.
type Timer struct {
	impl *timerImpl
}

type timerImpl struct {
	context *Context
	clock   clock.Clock
	gc      rmw.GuardConditionHandle

	mu       sync.Mutex
	period   time.Duration
	lastCall time.Time
	nextCall time.Time
	canceled bool
	callback TimerCallback
}

// Init starts a timer that is first due one period from now. A zero period
// makes the timer due on every wait.
func (t *Timer) Init(ctx *Context, clk clock.Clock, period time.Duration, callback TimerCallback) error {
	if t == nil {
		return errors.New(errors.CodeInvalidArgument, "timer is nil")
	}
	if clk == nil {
		return errors.New(errors.CodeInvalidArgument, "clock is nil")
	}
	if period < 0 {
		return errors.New(errors.CodeInvalidArgument, "timer period must not be negative, got %s", period)
	}
	if t.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "timer is already initialized")
	}
	if !ctx.IsValid() {
		return errors.New(errors.CodeNotInit, "context is not initialized or has been shut down")
	}

	gc, err := ctx.Transport().CreateGuardCondition()
	if err != nil {
		return createFailed(errors.CodeTimerInvalid, err, "create timer guard condition")
	}

	now := clk.Now()
	t.impl = &timerImpl{
		context:  ctx,
		clock:    clk,
		gc:       gc,
		period:   period,
		lastCall: now,
		nextCall: now.Add(period),
		callback: callback,
	}
	ctx.entityCreated("timer")
	return nil
}

// Fini stops the timer and destroys its guard condition. Finalizing an
// uninitialized timer is a no-op.
func (t *Timer) Fini() error {
	if t == nil || t.impl == nil {
		return nil
	}
	impl := t.impl
	t.impl = nil

	impl.context.entityDestroyed("timer")
	if err := impl.context.Transport().DestroyGuardCondition(impl.gc); err != nil {
		impl.context.Logger().Error("Failed to destroy timer guard condition", "error", err)
		return convertTransportError(err)
	}
	return nil
}

// IsValid reports whether the timer is initialized.
func (t *Timer) IsValid() bool {
	return t != nil && t.impl != nil
}

func (t *Timer) invalid() error {
	return errors.New(errors.CodeTimerInvalid, "timer is invalid")
}

// Call runs the callback and schedules the next call. When calls were
// missed the schedule skips ahead to the first period boundary after now
// instead of firing repeatedly. A canceled timer fails with
// CodeTimerCanceled.
func (t *Timer) Call() error {
	if !t.IsValid() {
		return t.invalid()
	}
	impl := t.impl

	impl.mu.Lock()
	if impl.canceled {
		impl.mu.Unlock()
		return errors.New(errors.CodeTimerCanceled, "timer is canceled")
	}
	now := impl.clock.Now()
	since := now.Sub(impl.lastCall)
	impl.lastCall = now

	next := impl.nextCall.Add(impl.period)
	if next.Before(now) {
		if impl.period == 0 {
			next = now
		} else {
			behind := now.Sub(next)
			missed := (behind - 1) / impl.period
			next = next.Add((missed + 1) * impl.period)
		}
	}
	impl.nextCall = next
	callback := impl.callback
	impl.mu.Unlock()

	if callback != nil {
		callback(t, since)
	}
	return nil
}

// IsReady reports whether the timer is due. A canceled timer is never
// ready.
func (t *Timer) IsReady() (bool, error) {
	if !t.IsValid() {
		return false, t.invalid()
	}
	impl := t.impl
	impl.mu.Lock()
	defer impl.mu.Unlock()
	if impl.canceled {
		return false, nil
	}
	return !impl.clock.Now().Before(impl.nextCall), nil
}

// TimeUntilNextCall returns how long until the timer is due; it is zero or
// negative when the timer is overdue. A canceled timer fails with
// CodeTimerCanceled.
func (t *Timer) TimeUntilNextCall() (time.Duration, error) {
	if !t.IsValid() {
		return 0, t.invalid()
	}
	impl := t.impl
	impl.mu.Lock()
	defer impl.mu.Unlock()
	if impl.canceled {
		return 0, errors.New(errors.CodeTimerCanceled, "timer is canceled")
	}
	return impl.nextCall.Sub(impl.clock.Now()), nil
}

// TimeSinceLastCall returns the time elapsed since the last Call, or since
// Init or Reset when the timer has not been called.
func (t *Timer) TimeSinceLastCall() (time.Duration, error) {
	if !t.IsValid() {
		return 0, t.invalid()
	}
	impl := t.impl
	impl.mu.Lock()
	defer impl.mu.Unlock()
	return impl.clock.Now().Sub(impl.lastCall), nil
}

// Cancel stops the timer until Reset. Canceling twice is allowed.
func (t *Timer) Cancel() error {
	if !t.IsValid() {
		return t.invalid()
	}
	t.impl.mu.Lock()
	t.impl.canceled = true
	t.impl.mu.Unlock()
	return nil
}

// IsCanceled reports whether the timer is canceled.
func (t *Timer) IsCanceled() (bool, error) {
	if !t.IsValid() {
		return false, t.invalid()
	}
	t.impl.mu.Lock()
	defer t.impl.mu.Unlock()
	return t.impl.canceled, nil
}

// Reset re-arms the timer one period from now and clears a cancel. Its
// guard condition is triggered so a wait blocked on the old schedule
// wakes up.
func (t *Timer) Reset() error {
	if !t.IsValid() {
		return t.invalid()
	}
	impl := t.impl
	impl.mu.Lock()
	now := impl.clock.Now()
	impl.nextCall = now.Add(impl.period)
	impl.canceled = false
	impl.mu.Unlock()

	return convertTransportError(impl.gc.Trigger())
}

// Period returns the timer period.
func (t *Timer) Period() (time.Duration, error) {
	if !t.IsValid() {
		return 0, t.invalid()
	}
	t.impl.mu.Lock()
	defer t.impl.mu.Unlock()
	return t.impl.period, nil
}

// ExchangePeriod sets a new period and returns the old one. The time of
// the next call is not changed; the new period applies from then on.
func (t *Timer) ExchangePeriod(period time.Duration) (time.Duration, error) {
	if !t.IsValid() {
		return 0, t.invalid()
	}
	if period < 0 {
		return 0, errors.New(errors.CodeInvalidArgument, "timer period must not be negative, got %s", period)
	}
	t.impl.mu.Lock()
	defer t.impl.mu.Unlock()
	old := t.impl.period
	t.impl.period = period
	return old, nil
}

// ExchangeCallback sets a new callback and returns the old one.
func (t *Timer) ExchangeCallback(callback TimerCallback) (TimerCallback, error) {
	if !t.IsValid() {
		return nil, t.invalid()
	}
	t.impl.mu.Lock()
	defer t.impl.mu.Unlock()
	old := t.impl.callback
	t.impl.callback = callback
	return old, nil
}

// Clock returns the clock the timer runs against.
func (t *Timer) Clock() clock.Clock {
	if !t.IsValid() {
		return nil
	}
	return t.impl.clock
}

func (t *Timer) guardCondition() rmw.Waitable {
	if !t.IsValid() {
		return nil
	}
	return t.impl.gc
}
