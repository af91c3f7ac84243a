package rcl

import (
	"time"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rmw"
)

// WaitSetSizes declares how many entities of each kind a wait set holds.
type WaitSetSizes struct {
	Subscriptions   int
	GuardConditions int
	Timers          int
	Clients         int
	Services        int
	Events          int
}

func (s WaitSetSizes) empty() bool {
	return s == WaitSetSizes{}
}

func (s WaitSetSizes) validate() error {
	if s.Subscriptions < 0 || s.GuardConditions < 0 || s.Timers < 0 ||
		s.Clients < 0 || s.Services < 0 || s.Events < 0 {
		return errors.New(errors.CodeInvalidArgument, "wait set sizes must not be negative: %+v", s)
	}
	return nil
}

// transportCapacity is the number of entities the transport wait context
// is sized for.
func (s WaitSetSizes) transportCapacity() int {
	return 2*s.Subscriptions + s.GuardConditions + s.Timers + s.Clients + s.Services + s.Events
}

// WaitSet waits for any of a group of borrowed entities to become ready.
// Entities are added after each Clear; after Wait the entity arrays hold
// nil wherever the entity was not ready. The zero value is uninitialized.
//
// A wait set is not safe for concurrent use. Its entities must stay
// initialized while they are referenced from it.
type WaitSet struct {
	impl *waitSetImpl
}

type waitSetImpl struct {
	context *Context
	handle  rmw.WaitSetHandle
	sizes   WaitSetSizes

	subscriptions   slots[Subscription]
	guardConditions slots[GuardCondition]
	timers          slots[Timer]
	clients         slots[Client]
	services        slots[Service]
	events          slots[Event]

	// Transport mirrors. The guard condition mirror holds the user guard
	// conditions followed by a reserved tail with one slot per timer.
	rmwSubscriptions   *rmw.WaitArray
	rmwGuardConditions *rmw.WaitArray
	rmwClients         *rmw.WaitArray
	rmwServices        *rmw.WaitArray
	rmwEvents          *rmw.WaitArray

	// timerGuards remembers what add time wrote into the reserved tail,
	// since a wait may overwrite the tail while compacting.
	timerGuards []rmw.Waitable
}

// Init allocates the entity arrays and the transport wait context.
func (w *WaitSet) Init(ctx *Context, sizes WaitSetSizes) error {
	if w == nil {
		return errors.New(errors.CodeInvalidArgument, "wait set is nil")
	}
	if err := sizes.validate(); err != nil {
		return err
	}
	if w.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "wait set is already initialized")
	}
	if !ctx.IsValid() {
		return errors.New(errors.CodeNotInit, "context is not initialized or has been shut down")
	}

	impl := &waitSetImpl{context: ctx}
	impl.subscriptions.kind = "subscription"
	impl.guardConditions.kind = "guard condition"
	impl.timers.kind = "timer"
	impl.clients.kind = "client"
	impl.services.kind = "service"
	impl.events.kind = "event"

	if err := impl.resize(sizes); err != nil {
		return err
	}
	w.impl = impl
	ctx.entityCreated("wait_set")
	return nil
}

// resize reallocates both levels of storage and the transport wait
// context. On failure the previous transport context is gone and impl is
// left with no storage.
func (impl *waitSetImpl) resize(sizes WaitSetSizes) error {
	transport := impl.context.Transport()
	if impl.handle != nil {
		if err := transport.DestroyWaitSet(impl.handle); err != nil {
			impl.context.Logger().Error("Failed to destroy wait set during resize", "error", err)
		}
		impl.handle = nil
	}

	impl.subscriptions.resize(sizes.Subscriptions)
	impl.guardConditions.resize(sizes.GuardConditions)
	impl.timers.resize(sizes.Timers)
	impl.clients.resize(sizes.Clients)
	impl.services.resize(sizes.Services)
	impl.events.resize(sizes.Events)

	impl.rmwSubscriptions = mirror(sizes.Subscriptions)
	impl.rmwGuardConditions = mirror(sizes.GuardConditions + sizes.Timers)
	impl.rmwClients = mirror(sizes.Clients)
	impl.rmwServices = mirror(sizes.Services)
	impl.rmwEvents = mirror(sizes.Events)
	impl.timerGuards = nil
	if sizes.Timers > 0 {
		impl.timerGuards = make([]rmw.Waitable, sizes.Timers)
	}

	handle, err := transport.CreateWaitSet(sizes.transportCapacity())
	if err != nil {
		impl.release()
		return createFailed(errors.CodeWaitSetInvalid, err, "create transport wait set")
	}
	impl.handle = handle
	impl.sizes = sizes
	return nil
}

// release drops all storage, leaving every size at zero.
func (impl *waitSetImpl) release() {
	impl.subscriptions.resize(0)
	impl.guardConditions.resize(0)
	impl.timers.resize(0)
	impl.clients.resize(0)
	impl.services.resize(0)
	impl.events.resize(0)
	impl.rmwSubscriptions = nil
	impl.rmwGuardConditions = nil
	impl.rmwClients = nil
	impl.rmwServices = nil
	impl.rmwEvents = nil
	impl.timerGuards = nil
	impl.sizes = WaitSetSizes{}
}

func mirror(n int) *rmw.WaitArray {
	if n == 0 {
		return nil
	}
	return rmw.NewWaitArray(n)
}

// Fini releases the wait set and returns it to the zero state. It does not
// touch the borrowed entities. Finalizing an uninitialized wait set is a
// no-op.
func (w *WaitSet) Fini() error {
	if w == nil || w.impl == nil {
		return nil
	}
	impl := w.impl
	w.impl = nil

	impl.context.entityDestroyed("wait_set")
	var err error
	if impl.handle != nil {
		if derr := impl.context.Transport().DestroyWaitSet(impl.handle); derr != nil {
			impl.context.Logger().Error("Failed to destroy wait set", "error", derr)
			err = convertTransportError(derr)
		}
	}
	impl.release()
	return err
}

// IsValid reports whether the wait set is initialized.
func (w *WaitSet) IsValid() bool {
	return w != nil && w.impl != nil && w.impl.handle != nil
}

func (w *WaitSet) invalid() error {
	return errors.New(errors.CodeWaitSetInvalid, "wait set is invalid")
}

// Sizes returns the declared capacity of each kind.
func (w *WaitSet) Sizes() WaitSetSizes {
	if w == nil || w.impl == nil {
		return WaitSetSizes{}
	}
	return w.impl.sizes
}

// Resize changes the declared capacities. Every entry is forgotten, and a
// size of zero releases that kind's storage. A zero WaitSet has no context
// to create transport storage from, so Resize on it fails with
// CodeWaitSetInvalid; Init sizes a fresh wait set through the same path.
// A failed resize leaves the wait set invalid with every size zero.
func (w *WaitSet) Resize(sizes WaitSetSizes) error {
	if err := sizes.validate(); err != nil {
		return err
	}
	if w == nil || w.impl == nil {
		return w.invalid()
	}
	return w.impl.resize(sizes)
}

// Clear forgets every added entity. Capacities are unchanged.
func (w *WaitSet) Clear() error {
	if !w.IsValid() {
		return w.invalid()
	}
	impl := w.impl
	impl.subscriptions.clear()
	impl.guardConditions.clear()
	impl.timers.clear()
	impl.clients.clear()
	impl.services.clear()
	impl.events.clear()

	impl.rmwSubscriptions.Clear()
	impl.rmwGuardConditions.Clear()
	impl.rmwClients.Clear()
	impl.rmwServices.Clear()
	impl.rmwEvents.Clear()
	clear(impl.timerGuards)
	return nil
}

// addMirrored appends e to its kind and its transport handle to the
// matching mirror at the same index.
func addMirrored[T any](s *slots[T], m *rmw.WaitArray, e *T, handle rmw.Waitable, invalid errors.Code) (int, error) {
	if e == nil || handle == nil {
		return -1, errors.New(invalid, "%s is invalid", s.kind)
	}
	idx, err := s.add(e)
	if err != nil {
		return -1, err
	}
	m.Entries[idx] = handle
	m.Count = s.fill
	return idx, nil
}

// AddSubscription adds sub and returns its index in Subscriptions.
func (w *WaitSet) AddSubscription(sub *Subscription) (int, error) {
	if w.IsValid() {
		return addMirrored(&w.impl.subscriptions, w.impl.rmwSubscriptions, sub, sub.waitable(), errors.CodeSubscriptionInvalid)
	}
	return -1, w.invalid()
}

// AddGuardCondition adds gc and returns its index in GuardConditions.
func (w *WaitSet) AddGuardCondition(gc *GuardCondition) (int, error) {
	if w.IsValid() {
		return addMirrored(&w.impl.guardConditions, w.impl.rmwGuardConditions, gc, gc.waitable(), errors.CodeInvalidArgument)
	}
	return -1, w.invalid()
}

// AddClient adds c and returns its index in Clients.
func (w *WaitSet) AddClient(c *Client) (int, error) {
	if w.IsValid() {
		return addMirrored(&w.impl.clients, w.impl.rmwClients, c, c.waitable(), errors.CodeClientInvalid)
	}
	return -1, w.invalid()
}

// AddService adds s and returns its index in Services.
func (w *WaitSet) AddService(s *Service) (int, error) {
	if w.IsValid() {
		return addMirrored(&w.impl.services, w.impl.rmwServices, s, s.waitable(), errors.CodeServiceInvalid)
	}
	return -1, w.invalid()
}

// AddEvent adds e and returns its index in Events.
func (w *WaitSet) AddEvent(e *Event) (int, error) {
	if w.IsValid() {
		return addMirrored(&w.impl.events, w.impl.rmwEvents, e, e.waitable(), errors.CodeEventInvalid)
	}
	return -1, w.invalid()
}

// AddTimer adds t and returns its index in Timers. The timer's guard
// condition goes to the reserved tail of the transport guard condition
// array, after every user guard condition slot; it never appears in
// GuardConditions.
func (w *WaitSet) AddTimer(t *Timer) (int, error) {
	if !w.IsValid() {
		return -1, w.invalid()
	}
	if !t.IsValid() {
		return -1, errors.New(errors.CodeTimerInvalid, "timer is invalid")
	}
	impl := w.impl
	idx, err := impl.timers.add(t)
	if err != nil {
		return -1, err
	}
	if gc := t.guardCondition(); gc != nil {
		impl.rmwGuardConditions.Entries[impl.sizes.GuardConditions+idx] = gc
		impl.timerGuards[idx] = gc
	}
	return idx, nil
}

// Subscriptions returns the subscription array. After Wait, entries that
// were not ready are nil. The slice is owned by the wait set and is valid
// until the next Resize or Fini.
func (w *WaitSet) Subscriptions() []*Subscription {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.subscriptions.entries
}

// GuardConditions returns the guard condition array.
func (w *WaitSet) GuardConditions() []*GuardCondition {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.guardConditions.entries
}

// Timers returns the timer array.
func (w *WaitSet) Timers() []*Timer {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.timers.entries
}

// Clients returns the client array.
func (w *WaitSet) Clients() []*Client {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.clients.entries
}

// Services returns the service array.
func (w *WaitSet) Services() []*Service {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.services.entries
}

// Events returns the event array.
func (w *WaitSet) Events() []*Event {
	if w == nil || w.impl == nil {
		return nil
	}
	return w.impl.events.entries
}

// Wait blocks until an added entity is ready or the timeout elapses. A
// negative timeout blocks indefinitely and zero polls. Pending timers
// shorten the timeout to the time until the earliest one is due.
//
// On return every array holds nil where its entity is not ready. When
// nothing became ready within the caller's timeout the error carries
// CodeTimeout, an expected outcome. A wait cut short by a timer returns
// nil even if the timer turned out not to be due yet.
func (w *WaitSet) Wait(timeout time.Duration) error {
	if !w.IsValid() {
		return w.invalid()
	}
	impl := w.impl
	if impl.sizes.empty() {
		return errors.New(errors.CodeWaitSetEmpty, "wait set has no capacity for any entity")
	}

	start := time.Now()
	err := impl.wait(timeout)
	result := metric.WaitResultReady
	switch {
	case err == nil:
	case errors.CodeOf(err) == errors.CodeTimeout:
		result = metric.WaitResultTimeout
	default:
		result = metric.WaitResultError
		impl.context.metrics().RecordError(errors.CodeOf(err).String())
	}
	impl.context.metrics().RecordWait(result, time.Since(start))
	return err
}

func (impl *waitSetImpl) wait(timeout time.Duration) error {
	gcs := impl.rmwGuardConditions
	userGuards := impl.guardConditions.fill

	// Timer pre-pass: drop canceled timers, move the guard condition of
	// each pending timer from the reserved tail into the live region, and
	// find the earliest due time.
	if gcs != nil {
		copy(gcs.Entries[impl.sizes.GuardConditions:], impl.timerGuards)
		gcs.Count = userGuards
	}
	timers := impl.timers.entries
	pendingTimers := 0
	var minUntil time.Duration
	for i, t := range timers {
		if t == nil {
			continue
		}
		until, err := t.TimeUntilNextCall()
		if err != nil {
			if errors.CodeOf(err) == errors.CodeTimerCanceled {
				timers[i] = nil
				continue
			}
			return err
		}
		if gc := impl.timerGuards[i]; gc != nil {
			gcs.Entries[gcs.Count] = gc
			gcs.Count++
		}
		if pendingTimers == 0 || until < minUntil {
			minUntil = until
		}
		pendingTimers++
	}

	var transportTimeout *time.Duration
	timerBound := false
	switch {
	case timeout == 0:
		zero := time.Duration(0)
		transportTimeout = &zero
	case timeout < 0 && pendingTimers == 0:
		// block indefinitely
	default:
		effective := timeout
		if pendingTimers > 0 && (timeout < 0 || minUntil < timeout) {
			effective = minUntil
			timerBound = true
		}
		effective = max(effective, 0)
		transportTimeout = &effective
	}

	if transportTimeout == nil && impl.liveEntities() == 0 {
		// Nothing could ever wake an indefinite wait.
		return errors.New(errors.CodeTimeout, "wait set has nothing to wait on")
	}

	err := impl.context.Transport().Wait(impl.rmwSubscriptions, gcs, impl.rmwServices,
		impl.rmwClients, impl.rmwEvents, impl.handle, transportTimeout)
	timedOut := false
	if err != nil {
		err = convertTransportError(err)
		if errors.CodeOf(err) != errors.CodeTimeout {
			return err
		}
		timedOut = true
	}

	// Post-pass: timers are due by the clock, not by transport wakeups.
	for i, t := range timers {
		if t == nil {
			continue
		}
		ready, err := t.IsReady()
		if err != nil {
			return err
		}
		if !ready {
			timers[i] = nil
		}
	}
	nullUnready(impl.subscriptions.entries, impl.rmwSubscriptions)
	nullUnready(impl.guardConditions.entries, gcs)
	nullUnready(impl.clients.entries, impl.rmwClients)
	nullUnready(impl.services.entries, impl.rmwServices)
	nullUnready(impl.events.entries, impl.rmwEvents)

	if timedOut && !timerBound {
		return errors.New(errors.CodeTimeout, "wait timed out after %s", timeout)
	}
	return nil
}

// liveEntities counts the transport entries taking part in a wait.
func (impl *waitSetImpl) liveEntities() int {
	n := 0
	for _, m := range []*rmw.WaitArray{impl.rmwSubscriptions, impl.rmwGuardConditions,
		impl.rmwClients, impl.rmwServices, impl.rmwEvents} {
		for _, e := range m.Live() {
			if e != nil {
				n++
			}
		}
	}
	return n
}

// nullUnready clears every entry whose transport mirror came back nil.
// Only the leading len(entries) mirror slots correspond to entries.
func nullUnready[T any](entries []*T, m *rmw.WaitArray) {
	for i := range entries {
		if entries[i] == nil {
			continue
		}
		if m == nil || i >= m.Count || m.Entries[i] == nil {
			entries[i] = nil
		}
	}
}
