package rcl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
	"github.com/c360/semrcl/rmw/inproc"
	"github.com/c360/semrcl/testutil"
)

func TestPublishSubscribe(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/robot")

	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))
	defer pub.Fini(node)
	sub := &Subscription{}
	require.NoError(t, sub.Init(node, stringType, "/robot/chatter", nil))
	defer sub.Fini(node)

	assert.Equal(t, "/robot/chatter", pub.TopicName())
	assert.Equal(t, "/robot/chatter", sub.TopicName())
	assert.Equal(t, rmw.HistoryKeepLast, pub.ActualQoS().History)

	count, err := pub.SubscriptionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = node.CountPublishers("chatter")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, _, err = sub.Take()
	assert.Equal(t, errors.CodeSubscriptionTakeFailed, errors.CodeOf(err))
	assert.True(t, errors.IsEmptyResult(err))

	require.NoError(t, pub.Publish([]byte("hello")))
	data, info, err := sub.Take()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	gid, err := pub.GID()
	require.NoError(t, err)
	assert.Equal(t, gid, info.PublisherGID)
}

func TestEntity_InitErrors(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")

	t.Run("nil type support", func(t *testing.T) {
		pub := &Publisher{}
		err := pub.Init(node, nil, "chatter", nil)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})

	t.Run("invalid node", func(t *testing.T) {
		sub := &Subscription{}
		err := sub.Init(&Node{}, stringType, "chatter", nil)
		assert.Equal(t, errors.CodeNodeInvalid, errors.CodeOf(err))
	})

	t.Run("invalid topic", func(t *testing.T) {
		pub := &Publisher{}
		err := pub.Init(node, stringType, "chat//ter", nil)
		assert.Equal(t, errors.CodeTopicNameInvalid, errors.CodeOf(err))
		assert.False(t, pub.IsValid())
	})

	t.Run("unknown substitution is a topic error", func(t *testing.T) {
		sub := &Subscription{}
		err := sub.Init(node, stringType, "{bogus}/chatter", nil)
		assert.Equal(t, errors.CodeTopicNameInvalid, errors.CodeOf(err))
		assert.Contains(t, err.Error(), "{bogus}")
	})

	t.Run("invalid service", func(t *testing.T) {
		client := &Client{}
		err := client.Init(node, addType, "add/", nil)
		assert.Equal(t, errors.CodeServiceNameInvalid, errors.CodeOf(err))
		srv := &Service{}
		err = srv.Init(node, addType, "{bogus}", nil)
		assert.Equal(t, errors.CodeServiceNameInvalid, errors.CodeOf(err))
	})

	t.Run("double init", func(t *testing.T) {
		pub := &Publisher{}
		require.NoError(t, pub.Init(node, stringType, "chatter", nil))
		defer pub.Fini(node)
		err := pub.Init(node, stringType, "chatter", nil)
		assert.Equal(t, errors.CodeAlreadyInit, errors.CodeOf(err))
	})
}

func TestEntity_TransportFailureUnwinds(t *testing.T) {
	faulty := testutil.NewFaultyTransport(inproc.New())
	ctx := newContext(t, faulty)
	node := newNode(t, ctx, "talker", "/")

	tests := []struct {
		op   string
		code errors.Code
		init func() (bool, error)
	}{
		{"CreatePublisher", errors.CodePublisherInvalid, func() (bool, error) {
			p := &Publisher{}
			err := p.Init(node, stringType, "chatter", nil)
			return p.IsValid(), err
		}},
		{"CreateSubscription", errors.CodeSubscriptionInvalid, func() (bool, error) {
			s := &Subscription{}
			err := s.Init(node, stringType, "chatter", nil)
			return s.IsValid(), err
		}},
		{"CreateClient", errors.CodeClientInvalid, func() (bool, error) {
			c := &Client{}
			err := c.Init(node, addType, "add", nil)
			return c.IsValid(), err
		}},
		{"CreateService", errors.CodeServiceInvalid, func() (bool, error) {
			s := &Service{}
			err := s.Init(node, addType, "add", nil)
			return s.IsValid(), err
		}},
		{"CreateGuardCondition", errors.CodeTimerInvalid, func() (bool, error) {
			tm := &Timer{}
			err := tm.Init(ctx, testClock(), 0, nil)
			return tm.IsValid(), err
		}},
		{"CreateWaitSet", errors.CodeWaitSetInvalid, func() (bool, error) {
			ws := &WaitSet{}
			err := ws.Init(ctx, WaitSetSizes{Subscriptions: 1})
			return ws.IsValid(), err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			faulty.FailTimes(tt.op, testutil.ErrMockFailed, 1)
			valid, err := tt.init()
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.ErrorIs(t, err, testutil.ErrMockFailed, "the transport cause stays in the chain")
			assert.False(t, valid)
			assert.Equal(t, 1, faulty.Calls(tt.op))
		})
	}
}

func TestEntity_FiniAfterShutdown(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")

	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))
	sub := &Subscription{}
	require.NoError(t, sub.Init(node, stringType, "chatter", nil))
	gc := &GuardCondition{}
	require.NoError(t, gc.Init(ctx))

	require.NoError(t, ctx.Shutdown())

	assert.False(t, pub.IsValid())
	assert.True(t, pub.IsValidExceptContext())
	assert.False(t, sub.IsValid())
	assert.True(t, sub.IsValidExceptContext())
	assert.False(t, gc.IsValid())
	assert.True(t, gc.IsValidExceptContext())

	err := pub.Publish([]byte("late"))
	assert.Equal(t, errors.CodePublisherInvalid, errors.CodeOf(err))

	require.NoError(t, pub.Fini(node))
	require.NoError(t, sub.Fini(node))
	require.NoError(t, gc.Fini())
	assert.False(t, pub.IsValidExceptContext())
	require.NoError(t, pub.Fini(node), "fini of a zero publisher is a no-op")
}

func TestEntity_FiniRequiresNode(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")

	sub := &Subscription{}
	require.NoError(t, sub.Init(node, stringType, "chatter", nil))

	err := sub.Fini(&Node{})
	assert.Equal(t, errors.CodeNodeInvalid, errors.CodeOf(err))
	assert.True(t, sub.IsValid(), "a rejected fini keeps the subscription")
	require.NoError(t, sub.Fini(node))
}

func TestEntity_FiniTransportFailure(t *testing.T) {
	faulty := testutil.NewFaultyTransport(inproc.New())
	ctx := newContext(t, faulty)
	node := newNode(t, ctx, "talker", "/")

	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))

	faulty.Fail("DestroyPublisher", testutil.ErrMockFailed)
	err := pub.Fini(node)
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))
	assert.False(t, pub.IsValidExceptContext(), "the publisher is released anyway")
}

func TestClientService(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "adder", "/")

	client := &Client{}
	require.NoError(t, client.Init(node, addType, "add_two_ints", nil))
	defer client.Fini(node)

	available, err := client.ServiceIsAvailable()
	require.NoError(t, err)
	assert.False(t, available)

	srv := &Service{}
	require.NoError(t, srv.Init(node, addType, "add_two_ints", nil))
	defer srv.Fini(node)
	assert.Equal(t, "/add_two_ints", srv.ServiceName())

	available, err = client.ServiceIsAvailable()
	require.NoError(t, err)
	assert.True(t, available)

	_, _, err = srv.TakeRequest()
	assert.Equal(t, errors.CodeServiceTakeFailed, errors.CodeOf(err))

	seq, err := client.SendRequest([]byte("1+2"))
	require.NoError(t, err)

	id, req, err := srv.TakeRequest()
	require.NoError(t, err)
	assert.Equal(t, []byte("1+2"), req)
	assert.Equal(t, seq, id.SequenceNumber)
	gid, err := client.GID()
	require.NoError(t, err)
	assert.Equal(t, gid, id.WriterGID)

	_, _, err = client.TakeResponse()
	assert.Equal(t, errors.CodeClientTakeFailed, errors.CodeOf(err))

	require.NoError(t, srv.SendResponse(id, []byte("3")))
	respID, resp, err := client.TakeResponse()
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), resp)
	assert.Equal(t, seq, respID.SequenceNumber)
}

func TestEvent(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")

	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))
	defer pub.Fini(node)
	sub := &Subscription{}
	opts := SubscriptionOptions{QoS: rmw.QoSProfile{History: rmw.HistoryKeepLast, Depth: 1}}
	require.NoError(t, sub.Init(node, stringType, "chatter", &opts))
	defer sub.Fini(node)

	ev := &Event{}
	err := ev.InitSubscriptionEvent(sub, rmw.EventPublicationMatched)
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err), "publisher event on a subscription")

	err = ev.InitSubscriptionEvent(&Subscription{}, rmw.EventMessageLost)
	assert.Equal(t, errors.CodeSubscriptionInvalid, errors.CodeOf(err))

	require.NoError(t, ev.InitSubscriptionEvent(sub, rmw.EventMessageLost))
	defer ev.Fini()
	assert.Equal(t, rmw.EventMessageLost, ev.Type())

	err = ev.InitSubscriptionEvent(sub, rmw.EventMessageLost)
	assert.Equal(t, errors.CodeAlreadyInit, errors.CodeOf(err))

	_, err = ev.Take()
	assert.Equal(t, errors.CodeEventTakeFailed, errors.CodeOf(err))

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, pub.Publish([]byte(msg)))
	}
	status, err := ev.Take()
	require.NoError(t, err)
	lost, ok := status.(rmw.MessageLostStatus)
	require.True(t, ok)
	assert.Equal(t, 2, lost.TotalCount)
	assert.Equal(t, 2, lost.TotalCountChange)

	data, _, err := sub.Take()
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), data, "keep last keeps the newest sample")
}

func TestEvent_ValidityAfterShutdown(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "listener", "/")

	sub := &Subscription{}
	require.NoError(t, sub.Init(node, stringType, "chatter", nil))
	ev := &Event{}
	require.NoError(t, ev.InitSubscriptionEvent(sub, rmw.EventMessageLost))
	assert.True(t, ev.IsValid())

	require.NoError(t, ctx.Shutdown())

	assert.False(t, ev.IsValid())
	assert.True(t, ev.IsValidExceptContext())
	assert.Equal(t, rmw.EventMessageLost, ev.Type(), "accessors keep working after shutdown")
	assert.NotNil(t, ev.waitable())

	_, err := ev.Take()
	assert.Equal(t, errors.CodeEventInvalid, errors.CodeOf(err))

	require.NoError(t, ev.Fini())
	assert.False(t, ev.IsValidExceptContext())
	require.NoError(t, sub.Fini(node))
}

func TestEntity_InitNilReceiver(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")
	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))
	defer pub.Fini(node)

	tests := []struct {
		name string
		init func() error
	}{
		{"context", func() error {
			var c *Context
			return c.Init(InitOptions{Transport: inproc.New()})
		}},
		{"node", func() error {
			var n *Node
			return n.Init(ctx, "n", "/", nil)
		}},
		{"publisher", func() error {
			var p *Publisher
			return p.Init(node, stringType, "chatter", nil)
		}},
		{"subscription", func() error {
			var s *Subscription
			return s.Init(node, stringType, "chatter", nil)
		}},
		{"client", func() error {
			var c *Client
			return c.Init(node, addType, "add", nil)
		}},
		{"service", func() error {
			var s *Service
			return s.Init(node, addType, "add", nil)
		}},
		{"publisher event", func() error {
			var e *Event
			return e.InitPublisherEvent(pub, rmw.EventPublicationMatched)
		}},
		{"subscription event", func() error {
			var e *Event
			return e.InitSubscriptionEvent(&Subscription{}, rmw.EventMessageLost)
		}},
		{"guard condition", func() error {
			var g *GuardCondition
			return g.Init(ctx)
		}},
		{"timer", func() error {
			var tm *Timer
			return tm.Init(ctx, clock.System(), time.Second, nil)
		}},
		{"wait set", func() error {
			var w *WaitSet
			return w.Init(ctx, WaitSetSizes{GuardConditions: 1})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = tt.init() })
			assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
		})
	}
}

func TestEvent_Unsupported(t *testing.T) {
	ctx := newInprocContext(t)
	node := newNode(t, ctx, "talker", "/")

	pub := &Publisher{}
	require.NoError(t, pub.Init(node, stringType, "chatter", nil))
	defer pub.Fini(node)

	ev := &Event{}
	err := ev.InitPublisherEvent(pub, rmw.EventOfferedDeadlineMissed)
	assert.Equal(t, errors.CodeUnsupported, errors.CodeOf(err))
	assert.False(t, ev.IsValid())
}

func TestGuardCondition(t *testing.T) {
	gc := &GuardCondition{}
	err := gc.Init(&Context{})
	assert.Equal(t, errors.CodeNotInit, errors.CodeOf(err))

	ctx := newInprocContext(t)
	require.NoError(t, gc.Init(ctx))
	err = gc.Init(ctx)
	assert.Equal(t, errors.CodeAlreadyInit, errors.CodeOf(err))
	require.NoError(t, gc.Trigger())
	require.NoError(t, gc.Fini())

	err = gc.Trigger()
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}
