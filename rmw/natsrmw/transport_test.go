package natsrmw

import (
	"sync"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rmw"
	"github.com/c360/semrcl/testutil"
)

const (
	stringType = rmw.MessageType("std_msgs/msg/String")
	addType    = rmw.ServiceType("example_interfaces/srv/AddTwoInts")
)

func newTransport(t *testing.T, opts ...Option) (*Transport, *testutil.MockNATSClient, rmw.Node) {
	t.Helper()
	conn := testutil.NewMockNATSClient()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	tr := New(conn, opts...)
	t.Cleanup(func() { _ = tr.Shutdown() })
	n, err := tr.CreateNode("talker", "/")
	require.NoError(t, err)
	return tr, conn, n
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		segment string
		input   string
		avoid   bool
		want    string
	}{
		{"topic", "semrcl", topicSegment, "/chatter", false, "semrcl.rt.chatter"},
		{"nested topic", "semrcl", topicSegment, "/robot/cmd_vel", false, "semrcl.rt.robot.cmd_vel"},
		{"service", "semrcl", serviceSegment, "/add_two_ints", false, "semrcl.rs.add_two_ints"},
		{"custom prefix", "fleet", topicSegment, "/a/b", false, "fleet.rt.a.b"},
		{"avoid conventions", "semrcl", topicSegment, "/a/b", true, "semrcl.a.b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectFor(tt.prefix, tt.segment, tt.input, tt.avoid))
		})
	}
}

func TestPublishSubscribe(t *testing.T) {
	tr, conn, n := newTransport(t)

	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	assert.Equal(t, 1, pub.MatchedCount())
	assert.Equal(t, 1, sub.MatchedCount())
	assert.False(t, sub.Ready())

	require.NoError(t, pub.Publish([]byte("hello")))
	require.NoError(t, pub.Publish([]byte("world")))
	testutil.AssertMessageReceived(t, conn, "semrcl.rt.chatter")
	assert.True(t, sub.Ready())

	data, info, ok, err := sub.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, pub.GID(), info.PublisherGID)
	assert.Equal(t, int64(1), info.SequenceNumber)
	assert.False(t, info.ReceivedTimestamp.Before(info.SourceTimestamp))

	data, info, ok, err = sub.Take()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("world"), data)
	assert.Equal(t, int64(2), info.SequenceNumber)

	_, _, ok, err = sub.Take()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, sub.Ready())

	count, err := tr.CountPublishers("/chatter")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = tr.CountSubscribers("/chatter")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, tr.DestroySubscription(n, sub))
	require.NoError(t, tr.DestroyPublisher(n, pub))
	assert.Equal(t, 0, conn.SubscriberCount("semrcl.rt.chatter"))
	count, _ = tr.CountPublishers("/chatter")
	assert.Equal(t, 0, count)
}

func TestSubscriptionDropsUnexpectedType(t *testing.T) {
	tr, _, n := newTransport(t)

	pub, err := tr.CreatePublisher(n, rmw.MessageType("std_msgs/msg/Int32"), "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	require.NoError(t, pub.Publish([]byte{1, 0, 0, 0}))
	assert.False(t, sub.Ready())
}

func TestSubscriptionIgnoresGarbage(t *testing.T) {
	tr, conn, n := newTransport(t)

	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	require.NoError(t, conn.Publish(t.Context(), "semrcl.rt.chatter", []byte("not cbor")))
	assert.False(t, sub.Ready())
}

func TestKeepLastDropsOldest(t *testing.T) {
	metrics := metric.NewMetrics()
	tr, _, n := newTransport(t, WithMetrics(metrics))

	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter",
		rmw.QoSProfile{History: rmw.HistoryKeepLast, Depth: 2})
	require.NoError(t, err)
	ev, err := tr.CreateSubscriptionEvent(sub, rmw.EventMessageLost)
	require.NoError(t, err)

	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, pub.Publish([]byte(m)))
	}

	var got []string
	for {
		data, _, ok, err := sub.Take()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(data))
	}
	assert.Equal(t, []string{"b", "c"}, got)

	assert.True(t, ev.Ready())
	status, ok, err := ev.Take()
	require.NoError(t, err)
	require.True(t, ok)
	lost := status.(rmw.MessageLostStatus)
	assert.Equal(t, 1, lost.TotalCount)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.MessagesLost.WithLabelValues("/chatter")))

	require.NoError(t, tr.DestroyEvent(ev))
}

func TestKeepAllDropsNewest(t *testing.T) {
	tr, _, n := newTransport(t, WithKeepAllLimit(2))

	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSProfile{History: rmw.HistoryKeepAll})
	require.NoError(t, err)

	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, pub.Publish([]byte(m)))
	}

	data, _, ok, _ := sub.Take()
	require.True(t, ok)
	assert.Equal(t, "a", string(data))
	data, _, ok, _ = sub.Take()
	require.True(t, ok)
	assert.Equal(t, "b", string(data))
	_, _, ok, _ = sub.Take()
	assert.False(t, ok)
}

func TestLifespanExpiry(t *testing.T) {
	tr, _, n := newTransport(t)

	qos := rmw.QoSProfile{Lifespan: 20 * time.Millisecond}
	pub, err := tr.CreatePublisher(n, stringType, "/chatter", qos)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter", qos)
	require.NoError(t, err)

	require.NoError(t, pub.Publish([]byte("stale")))
	time.Sleep(40 * time.Millisecond)

	_, _, ok, err := sub.Take()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvents_Unsupported(t *testing.T) {
	tr, _, n := newTransport(t)

	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	_, err = tr.CreatePublisherEvent(pub, rmw.EventPublicationMatched)
	assert.Equal(t, errors.CodeUnsupported, errors.CodeOf(err))
	_, err = tr.CreateSubscriptionEvent(sub, rmw.EventSubscriptionMatched)
	assert.Equal(t, errors.CodeUnsupported, errors.CodeOf(err))
}

func TestServiceRoundTrip(t *testing.T) {
	tr, conn, n := newTransport(t)

	cl, err := tr.CreateClient(n, addType, "/add_two_ints", rmw.QoSServicesDefault)
	require.NoError(t, err)

	available, err := cl.ServiceIsAvailable()
	require.NoError(t, err)
	assert.False(t, available, "no server yet")

	srv, err := tr.CreateService(n, addType, "/add_two_ints", rmw.QoSServicesDefault)
	require.NoError(t, err)
	assert.Equal(t, 1, conn.SubscriberCount("semrcl.rs.add_two_ints"))

	available, err = cl.ServiceIsAvailable()
	require.NoError(t, err)
	assert.True(t, available)
	assert.False(t, srv.Ready(), "availability pings are not requests")

	seq, err := cl.SendRequest([]byte("1+2"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	require.True(t, srv.Ready())

	id, req, ok, err := srv.TakeRequest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1+2"), req)
	assert.Equal(t, cl.GID(), id.WriterGID)
	assert.Equal(t, seq, id.SequenceNumber)

	require.NoError(t, srv.SendResponse(id, []byte("3")))
	require.True(t, cl.Ready())

	respID, resp, ok, err := cl.TakeResponse()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, respID)
	assert.Equal(t, []byte("3"), resp)

	// A second response for the same request has nowhere to go.
	require.NoError(t, srv.SendResponse(id, []byte("3")))
	assert.False(t, cl.Ready())

	require.NoError(t, tr.DestroyService(n, srv))
	require.NoError(t, tr.DestroyClient(n, cl))
	assert.Equal(t, 0, conn.SubscriberCount("semrcl.rs.add_two_ints"))
}

func TestClientsOnlySeeOwnResponses(t *testing.T) {
	tr, _, n := newTransport(t)

	first, err := tr.CreateClient(n, addType, "/add", rmw.QoSServicesDefault)
	require.NoError(t, err)
	second, err := tr.CreateClient(n, addType, "/add", rmw.QoSServicesDefault)
	require.NoError(t, err)
	srv, err := tr.CreateService(n, addType, "/add", rmw.QoSServicesDefault)
	require.NoError(t, err)

	_, err = second.SendRequest([]byte("x"))
	require.NoError(t, err)
	id, _, ok, err := srv.TakeRequest()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, srv.SendResponse(id, []byte("y")))

	assert.False(t, first.Ready())
	assert.True(t, second.Ready())
}

func TestDisconnectedPublishFails(t *testing.T) {
	tr, conn, n := newTransport(t)

	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	conn.SetConnected(false)
	err = pub.Publish([]byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))

	status := tr.Health()
	assert.True(t, status.IsUnhealthy())

	conn.SetConnected(true)
	assert.True(t, tr.Health().IsHealthy())
	require.NoError(t, pub.Publish([]byte("x")))
}

func TestWait(t *testing.T) {
	t.Run("wakes on publish", func(t *testing.T) {
		tr, _, n := newTransport(t)
		pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
		require.NoError(t, err)
		sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
		require.NoError(t, err)
		ws, err := tr.CreateWaitSet(1)
		require.NoError(t, err)
		assert.Equal(t, Identifier, ws.Identifier())

		subs := rmw.NewWaitArray(1)
		subs.Entries[0] = sub
		subs.Count = 1

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = pub.Publish([]byte("x"))
		}()

		require.NoError(t, tr.Wait(subs, nil, nil, nil, nil, ws, durationPtr(time.Second)))
		assert.NotNil(t, subs.Entries[0])
		require.NoError(t, tr.DestroyWaitSet(ws))
	})

	t.Run("times out", func(t *testing.T) {
		tr, _, n := newTransport(t)
		sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
		require.NoError(t, err)
		ws, err := tr.CreateWaitSet(1)
		require.NoError(t, err)

		subs := rmw.NewWaitArray(1)
		subs.Entries[0] = sub
		subs.Count = 1

		err = tr.Wait(subs, nil, nil, nil, nil, ws, durationPtr(10*time.Millisecond))
		assert.Equal(t, errors.CodeTimeout, errors.CodeOf(err))
		assert.Nil(t, subs.Entries[0])
	})

	t.Run("rejects foreign wait set", func(t *testing.T) {
		tr, _, _ := newTransport(t)
		err := tr.Wait(nil, nil, nil, nil, nil, rmw.NewWaitSet("inproc", 1), durationPtr(0))
		assert.Equal(t, errors.CodeMismatchedTransport, errors.CodeOf(err))
	})
}

func TestConcurrentPublishers(t *testing.T) {
	tr, _, n := newTransport(t)

	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSProfile{History: rmw.HistoryKeepAll})
	require.NoError(t, err)

	const publishers, each = 4, 25
	var wg sync.WaitGroup
	for range publishers {
		pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				assert.NoError(t, pub.Publish([]byte("x")))
			}
		}()
	}
	wg.Wait()

	taken := 0
	for {
		_, _, ok, err := sub.Take()
		require.NoError(t, err)
		if !ok {
			break
		}
		taken++
	}
	assert.Equal(t, publishers*each, taken)
}

func TestShutdown(t *testing.T) {
	tr, conn, n := newTransport(t)

	sub, err := tr.CreateSubscription(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)
	pub, err := tr.CreatePublisher(n, stringType, "/chatter", rmw.QoSDefault)
	require.NoError(t, err)

	require.NoError(t, tr.Shutdown())
	require.NoError(t, tr.Shutdown())
	assert.Equal(t, 0, conn.SubscriberCount("semrcl.rt.chatter"))
	assert.False(t, sub.Ready())
	assert.True(t, tr.Health().IsUnhealthy())

	_, err = tr.CreateNode("late", "/")
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))
	assert.Error(t, pub.Publish([]byte("x")))
	require.NoError(t, tr.DestroySubscription(n, sub))
}

func TestMismatchedHandles(t *testing.T) {
	tr, _, _ := newTransport(t)

	_, err := tr.CreatePublisher(nil, stringType, "/chatter", rmw.QoSDefault)
	assert.Equal(t, errors.CodeMismatchedTransport, errors.CodeOf(err))
	assert.Equal(t, errors.CodeMismatchedTransport, errors.CodeOf(tr.DestroyGuardCondition(nil)))
	assert.Equal(t, errors.CodeMismatchedTransport, errors.CodeOf(tr.DestroyEvent(nil)))
}
