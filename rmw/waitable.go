package rmw

import (
	"sync"
)

// Waitable is implemented by every transport handle that can be placed in
// a wait set.
type Waitable interface {
	// Ready reports whether the entity has something to deliver.
	Ready() bool
	// Attach registers a waker to be signalled when the entity may have
	// become ready.
	Attach(w *Waker)
	// Detach removes a waker registered with Attach.
	Detach(w *Waker)
}

// Waker is a level-triggered wake up signal shared by all entities a wait
// is blocked on.
type Waker struct {
	ch chan struct{}
}

// NewWaker returns a waker with no pending signal.
func NewWaker() *Waker {
	return &Waker{ch: make(chan struct{}, 1)}
}

// Wake signals the waker. It never blocks; repeated signals coalesce.
func (w *Waker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives a value after Wake.
func (w *Waker) C() <-chan struct{} {
	return w.ch
}

// drain discards a pending signal.
func (w *Waker) drain() {
	select {
	case <-w.ch:
	default:
	}
}

// Notifier keeps the set of wakers attached to an entity. Transports embed
// it in their handles and call Notify whenever the entity changes state.
type Notifier struct {
	mu     sync.Mutex
	wakers map[*Waker]struct{}
}

// Attach implements Waitable
func (n *Notifier) Attach(w *Waker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.wakers == nil {
		n.wakers = make(map[*Waker]struct{})
	}
	n.wakers[w] = struct{}{}
}

// Detach implements Waitable
func (n *Notifier) Detach(w *Waker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.wakers, w)
}

// Notify wakes every attached waker.
func (n *Notifier) Notify() {
	n.mu.Lock()
	wakers := make([]*Waker, 0, len(n.wakers))
	for w := range n.wakers {
		wakers = append(wakers, w)
	}
	n.mu.Unlock()

	for _, w := range wakers {
		w.Wake()
	}
}

// GuardCondition is a manually triggered waitable. A trigger stays set
// until a wait observes it.
type GuardCondition struct {
	Notifier

	mu        sync.Mutex
	triggered bool
}

// NewGuardCondition returns an untriggered guard condition.
func NewGuardCondition() *GuardCondition {
	return &GuardCondition{}
}

// Trigger sets the guard condition and wakes any wait it is part of.
func (g *GuardCondition) Trigger() error {
	g.mu.Lock()
	g.triggered = true
	g.mu.Unlock()
	g.Notify()
	return nil
}

// Ready implements Waitable
func (g *GuardCondition) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.triggered
}

// Consume clears the trigger. Waits call it on guard conditions they
// report as ready.
func (g *GuardCondition) Consume() {
	g.mu.Lock()
	g.triggered = false
	g.mu.Unlock()
}

// Consumer is implemented by waitables whose readiness is cleared by the
// wait that observes it.
type Consumer interface {
	Consume()
}
