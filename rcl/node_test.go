package rcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw/inproc"
	"github.com/c360/semrcl/testutil"
)

func TestNode_Init(t *testing.T) {
	ctx := newInprocContext(t)

	tests := []struct {
		name      string
		nodeName  string
		namespace string
		wantNS    string
		wantFQN   string
		wantCode  errors.Code
	}{
		{"root namespace", "talker", "/", "/", "/talker", errors.CodeOK},
		{"empty namespace", "talker", "", "/", "/talker", errors.CodeOK},
		{"relative namespace", "talker", "robot/arm", "/robot/arm", "/robot/arm/talker", errors.CodeOK},
		{"invalid name", "1talker", "/", "", "", errors.CodeNodeInvalidName},
		{"name with slash", "talk/er", "/", "", "", errors.CodeNodeInvalidName},
		{"invalid namespace", "talker", "/robot/", "", "", errors.CodeNodeInvalidNamespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &Node{}
			err := node.Init(ctx, tt.nodeName, tt.namespace, nil)
			if tt.wantCode != errors.CodeOK {
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				assert.False(t, node.IsValid())
				return
			}
			require.NoError(t, err)
			defer node.Fini()
			assert.Equal(t, tt.nodeName, node.Name())
			assert.Equal(t, tt.wantNS, node.Namespace())
			assert.Equal(t, tt.wantFQN, node.FullyQualifiedName())
			assert.Same(t, ctx, node.Context())
		})
	}
}

func TestNode_InitErrors(t *testing.T) {
	node := &Node{}
	err := node.Init(&Context{}, "talker", "/", nil)
	assert.Equal(t, errors.CodeNotInit, errors.CodeOf(err))

	ctx := newInprocContext(t)
	require.NoError(t, node.Init(ctx, "talker", "/", nil))
	err = node.Init(ctx, "talker", "/", nil)
	assert.Equal(t, errors.CodeAlreadyInit, errors.CodeOf(err))
	require.NoError(t, node.Fini())
	require.NoError(t, node.Fini(), "fini of a zero node is a no-op")

	err = node.Init(ctx, "talker", "/", &NodeOptions{Arguments: []string{"--ros-args", "--remap"}})
	assert.Equal(t, errors.CodeInvalidROSArgs, errors.CodeOf(err))
}

func TestNode_TransportFailure(t *testing.T) {
	faulty := testutil.NewFaultyTransport(inproc.New())
	ctx := newContext(t, faulty)
	faulty.Fail("CreateNode", testutil.ErrMockConnection)

	node := &Node{}
	err := node.Init(ctx, "talker", "/", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeError, errors.CodeOf(err))
	assert.ErrorIs(t, err, testutil.ErrMockConnection)
	assert.False(t, node.IsValid(), "a failed init leaves the zero state")

	faulty.Heal()
	require.NoError(t, node.Init(ctx, "talker", "/", nil))
	require.NoError(t, node.Fini())
}

func TestNode_Remap(t *testing.T) {
	ctx := newInprocContext(t, "prog", "--ros-args",
		"-r", "__node:=listener",
		"-r", "__ns:=/robot",
		"-r", "chatter:=news")

	node := newNode(t, ctx, "talker", "/")
	assert.Equal(t, "listener", node.Name())
	assert.Equal(t, "/robot", node.Namespace())
	assert.Equal(t, "/robot/listener", node.FullyQualifiedName())

	resolved, err := node.ResolveName("chatter", false, false)
	require.NoError(t, err)
	assert.Equal(t, "/robot/news", resolved)

	local := &Node{}
	require.NoError(t, local.Init(ctx, "talker", "/", &NodeOptions{
		Arguments: []string{"--ros-args", "-r", "__node:=speaker", "-r", "chatter:=local"},
		UseGlobalArguments: true,
	}))
	defer local.Fini()
	assert.Equal(t, "speaker", local.Name(), "local rules win over global ones")
	assert.Equal(t, "/robot", local.Namespace())
	resolved, err = local.ResolveName("chatter", false, false)
	require.NoError(t, err)
	assert.Equal(t, "/robot/local", resolved)

	isolated := &Node{}
	require.NoError(t, isolated.Init(ctx, "talker", "/", &NodeOptions{}))
	defer isolated.Fini()
	assert.Equal(t, "talker", isolated.Name(), "global rules are ignored when disabled")
	resolved, err = isolated.ResolveName("chatter", false, false)
	require.NoError(t, err)
	assert.Equal(t, "/chatter", resolved)
}

func TestNode_RemapToInvalidName(t *testing.T) {
	ctx := newInprocContext(t, "prog", "--ros-args", "-r", "__ns:=/robot/")

	node := &Node{}
	err := node.Init(ctx, "talker", "/", nil)
	assert.Equal(t, errors.CodeNodeInvalidNamespace, errors.CodeOf(err))
}

func TestNode_ResolveName(t *testing.T) {
	ctx := newInprocContext(t, "prog", "--ros-args",
		"-r", "foo:=bar",
		"-r", "rostopic://only_topic:=renamed")
	node := &Node{}
	require.NoError(t, node.Init(ctx, "talker", "/ns", &NodeOptions{
		UseGlobalArguments: true,
		Substitutions:      map[string]string{"robot": "r2", "bad": "1bad"},
	}))
	defer node.Fini()

	tests := []struct {
		name       string
		input      string
		isService  bool
		onlyExpand bool
		want       string
		wantCode   errors.Code
	}{
		{"relative", "chatter", false, false, "/ns/chatter", errors.CodeOK},
		{"private", "~/state", false, false, "/ns/talker/state", errors.CodeOK},
		{"absolute", "/abs/name", false, false, "/abs/name", errors.CodeOK},
		{"builtin substitution", "{node}/x", false, false, "/ns/talker/x", errors.CodeOK},
		{"user substitution", "{robot}/cmd", false, false, "/ns/r2/cmd", errors.CodeOK},
		{"remapped topic", "foo", false, false, "/ns/bar", errors.CodeOK},
		{"remapped service", "foo", true, false, "/ns/bar", errors.CodeOK},
		{"only expand", "foo", false, true, "/ns/foo", errors.CodeOK},
		{"topic rule skips services", "only_topic", true, false, "/ns/only_topic", errors.CodeOK},
		{"topic rule applies to topics", "only_topic", false, false, "/ns/renamed", errors.CodeOK},
		{"unknown substitution", "{bogus}/x", false, false, "", errors.CodeUnknownSubstitution},
		{"malformed", "foo/", false, false, "", errors.CodeTopicNameInvalid},
		{"malformed service", "foo/", true, false, "", errors.CodeServiceNameInvalid},
		{"unknown substitution in service", "{bogus}", true, false, "", errors.CodeUnknownSubstitution},
		{"invalid after expansion", "{bad}", false, false, "", errors.CodeTopicNameInvalid},
		{"invalid service after expansion", "{bad}", true, false, "", errors.CodeServiceNameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := node.ResolveName(tt.input, tt.isService, tt.onlyExpand)
			if tt.wantCode != errors.CodeOK {
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				if tt.input == "foo/" {
					assert.Equal(t, 3, errors.IndexOf(err), "recoding keeps the offset")
				}
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNode_ValidityAfterShutdown(t *testing.T) {
	ctx := newInprocContext(t)
	node := &Node{}
	require.NoError(t, node.Init(ctx, "talker", "/", nil))

	require.NoError(t, ctx.Shutdown())
	assert.False(t, node.IsValid())
	assert.True(t, node.IsValidExceptContext())

	_, err := node.CountPublishers("chatter")
	assert.Equal(t, errors.CodeNodeInvalid, errors.CodeOf(err))

	require.NoError(t, node.Fini())
	assert.False(t, node.IsValidExceptContext())
}
