package rcl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rmw"
	"github.com/c360/semrcl/rmw/inproc"
	"github.com/c360/semrcl/testutil"
)

const (
	stringType = rmw.MessageType("std_msgs/msg/String")
	addType    = rmw.ServiceType("example_interfaces/srv/AddTwoInts")
)

// newContext initializes a context on tr and tears it down with the test.
func newContext(t *testing.T, tr rmw.Transport, argv ...string) *Context {
	t.Helper()
	ctx := &Context{}
	require.NoError(t, ctx.Init(InitOptions{
		Transport: tr,
		Logger:    testutil.NewTestLogger(t),
		Metrics:   metric.NewMetrics(),
		Arguments: argv,
	}))
	t.Cleanup(func() {
		if ctx.IsValid() {
			_ = ctx.Shutdown()
		}
		_ = ctx.Fini()
	})
	return ctx
}

func newInprocContext(t *testing.T, argv ...string) *Context {
	t.Helper()
	return newContext(t, inproc.New(inproc.WithLogger(testutil.NewTestLogger(t))), argv...)
}

func newNode(t *testing.T, ctx *Context, name, namespace string) *Node {
	t.Helper()
	node := &Node{}
	require.NoError(t, node.Init(ctx, name, namespace, nil))
	t.Cleanup(func() { _ = node.Fini() })
	return node
}
