package rcl

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw/inproc"
	"github.com/c360/semrcl/testutil"
)

func TestContext_Lifecycle(t *testing.T) {
	ctx := &Context{}
	assert.False(t, ctx.IsValid())
	assert.Equal(t, uuid.Nil, ctx.InstanceID())

	err := ctx.Init(InitOptions{})
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))

	tr := inproc.New()
	require.NoError(t, ctx.Init(InitOptions{
		Transport: tr,
		Arguments: []string{"prog", "--verbose", "--ros-args", "-r", "foo:=bar", "--", "extra"},
	}))
	assert.True(t, ctx.IsValid())
	assert.NotEqual(t, uuid.Nil, ctx.InstanceID())
	assert.Len(t, ctx.GlobalArguments().Rules, 1)
	assert.Equal(t, []string{"prog", "--verbose", "extra"}, ctx.UnparsedArguments())
	assert.Same(t, tr, ctx.Transport())

	err = ctx.Init(InitOptions{Transport: tr})
	assert.Equal(t, errors.CodeAlreadyInit, errors.CodeOf(err))

	err = ctx.Fini()
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err), "fini requires shutdown first")

	require.NoError(t, ctx.Shutdown())
	assert.False(t, ctx.IsValid())
	err = ctx.Shutdown()
	assert.Equal(t, errors.CodeAlreadyShutdown, errors.CodeOf(err))

	require.NoError(t, ctx.Fini())
	assert.Equal(t, uuid.Nil, ctx.InstanceID())
	require.NoError(t, ctx.Fini(), "fini of a zero context is a no-op")

	err = ctx.Shutdown()
	assert.Equal(t, errors.CodeNotInit, errors.CodeOf(err))
}

func TestContext_InstanceIDsDiffer(t *testing.T) {
	a := newInprocContext(t)
	b := newInprocContext(t)
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}

func TestContext_InvalidArguments(t *testing.T) {
	ctx := &Context{}
	err := ctx.Init(InitOptions{
		Transport: inproc.New(),
		Arguments: []string{"prog", "--ros-args", "-r"},
	})
	assert.Equal(t, errors.CodeInvalidROSArgs, errors.CodeOf(err))
	assert.False(t, ctx.IsValid())
}

func TestContext_ShutdownTransportFailure(t *testing.T) {
	faulty := testutil.NewFaultyTransport(inproc.New())
	faulty.Fail("Shutdown", testutil.ErrMockFailed)

	ctx := &Context{}
	require.NoError(t, ctx.Init(InitOptions{Transport: faulty}))

	err := ctx.Shutdown()
	require.Error(t, err)
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))
	assert.ErrorIs(t, err, testutil.ErrMockFailed)
	assert.False(t, ctx.IsValid(), "context is invalid even when the transport fails")
	require.NoError(t, ctx.Fini())
}

func TestContext_Health(t *testing.T) {
	ctx := newInprocContext(t)
	assert.True(t, ctx.Health().IsHealthy())

	require.NoError(t, ctx.Shutdown())
	status := ctx.Health()
	assert.True(t, status.IsUnhealthy())
}
