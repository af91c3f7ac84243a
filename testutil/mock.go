package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/c360/semrcl/rmw"
)

// Common test errors
var (
	ErrMockFailed     = errors.New("mock operation failed")
	ErrMockTimeout    = errors.New("mock operation timed out")
	ErrMockConnection = errors.New("mock connection error")
)

// FaultyTransport wraps a transport and fails selected operations on
// demand. Operations are named after the rmw.Transport method, e.g.
// "CreatePublisher" or "DestroyNode". Every call is counted whether it
// fails or not, which lets tests check that cleanup paths ran.
type FaultyTransport struct {
	rmw.Transport

	mu     sync.Mutex
	faults map[string]fault
	calls  map[string]int
}

type fault struct {
	err   error
	times int // remaining failures; negative fails forever
}

// NewFaultyTransport wraps inner. With no faults configured it behaves
// exactly like inner.
func NewFaultyTransport(inner rmw.Transport) *FaultyTransport {
	return &FaultyTransport{
		Transport: inner,
		faults:    make(map[string]fault),
		calls:     make(map[string]int),
	}
}

// Fail makes every following call of op return err.
func (f *FaultyTransport) Fail(op string, err error) {
	f.FailTimes(op, err, -1)
}

// FailTimes makes the next n calls of op return err.
func (f *FaultyTransport) FailTimes(op string, err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{err: err, times: n}
}

// Heal removes every configured fault.
func (f *FaultyTransport) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.faults)
}

// Calls returns how many times op was invoked.
func (f *FaultyTransport) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyTransport) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	flt, ok := f.faults[op]
	if !ok {
		return nil
	}
	if flt.times > 0 {
		flt.times--
		if flt.times == 0 {
			delete(f.faults, op)
		} else {
			f.faults[op] = flt
		}
	}
	return flt.err
}

func (f *FaultyTransport) CreateNode(name, namespace string) (rmw.Node, error) {
	if err := f.check("CreateNode"); err != nil {
		return nil, err
	}
	return f.Transport.CreateNode(name, namespace)
}

func (f *FaultyTransport) DestroyNode(node rmw.Node) error {
	if err := f.check("DestroyNode"); err != nil {
		return err
	}
	return f.Transport.DestroyNode(node)
}

func (f *FaultyTransport) CreatePublisher(node rmw.Node, ts rmw.TypeSupport, topic string,
	qos rmw.QoSProfile,
) (rmw.Publisher, error) {
	if err := f.check("CreatePublisher"); err != nil {
		return nil, err
	}
	return f.Transport.CreatePublisher(node, ts, topic, qos)
}

func (f *FaultyTransport) DestroyPublisher(node rmw.Node, pub rmw.Publisher) error {
	if err := f.check("DestroyPublisher"); err != nil {
		return err
	}
	return f.Transport.DestroyPublisher(node, pub)
}

func (f *FaultyTransport) CreateSubscription(node rmw.Node, ts rmw.TypeSupport, topic string,
	qos rmw.QoSProfile,
) (rmw.Subscription, error) {
	if err := f.check("CreateSubscription"); err != nil {
		return nil, err
	}
	return f.Transport.CreateSubscription(node, ts, topic, qos)
}

func (f *FaultyTransport) DestroySubscription(node rmw.Node, sub rmw.Subscription) error {
	if err := f.check("DestroySubscription"); err != nil {
		return err
	}
	return f.Transport.DestroySubscription(node, sub)
}

func (f *FaultyTransport) CreateClient(node rmw.Node, ts rmw.TypeSupport, service string,
	qos rmw.QoSProfile,
) (rmw.Client, error) {
	if err := f.check("CreateClient"); err != nil {
		return nil, err
	}
	return f.Transport.CreateClient(node, ts, service, qos)
}

func (f *FaultyTransport) DestroyClient(node rmw.Node, client rmw.Client) error {
	if err := f.check("DestroyClient"); err != nil {
		return err
	}
	return f.Transport.DestroyClient(node, client)
}

func (f *FaultyTransport) CreateService(node rmw.Node, ts rmw.TypeSupport, service string,
	qos rmw.QoSProfile,
) (rmw.Service, error) {
	if err := f.check("CreateService"); err != nil {
		return nil, err
	}
	return f.Transport.CreateService(node, ts, service, qos)
}

func (f *FaultyTransport) DestroyService(node rmw.Node, service rmw.Service) error {
	if err := f.check("DestroyService"); err != nil {
		return err
	}
	return f.Transport.DestroyService(node, service)
}

func (f *FaultyTransport) CreateGuardCondition() (rmw.GuardConditionHandle, error) {
	if err := f.check("CreateGuardCondition"); err != nil {
		return nil, err
	}
	return f.Transport.CreateGuardCondition()
}

func (f *FaultyTransport) DestroyGuardCondition(gc rmw.GuardConditionHandle) error {
	if err := f.check("DestroyGuardCondition"); err != nil {
		return err
	}
	return f.Transport.DestroyGuardCondition(gc)
}

func (f *FaultyTransport) CreateWaitSet(capacity int) (rmw.WaitSetHandle, error) {
	if err := f.check("CreateWaitSet"); err != nil {
		return nil, err
	}
	return f.Transport.CreateWaitSet(capacity)
}

func (f *FaultyTransport) DestroyWaitSet(ws rmw.WaitSetHandle) error {
	if err := f.check("DestroyWaitSet"); err != nil {
		return err
	}
	return f.Transport.DestroyWaitSet(ws)
}

func (f *FaultyTransport) Wait(subs, gcs, services, clients, events *rmw.WaitArray,
	ws rmw.WaitSetHandle, timeout *time.Duration,
) error {
	if err := f.check("Wait"); err != nil {
		return err
	}
	return f.Transport.Wait(subs, gcs, services, clients, events, ws, timeout)
}

func (f *FaultyTransport) Shutdown() error {
	if err := f.check("Shutdown"); err != nil {
		return err
	}
	return f.Transport.Shutdown()
}
