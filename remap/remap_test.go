package remap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semrcl/errors"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		text     string
		expected Rule
	}{
		{"foo:=bar", Rule{Type: TypeTopicOrService, Match: "foo", Replacement: "bar"}},
		{"/foo/bar:=/baz", Rule{Type: TypeTopicOrService, Match: "/foo/bar", Replacement: "/baz"}},
		{"~/foo:=~/bar", Rule{Type: TypeTopicOrService, Match: "~/foo", Replacement: "~/bar"}},
		{"talker:chatter:=news", Rule{Type: TypeTopicOrService, NodeName: "talker", Match: "chatter", Replacement: "news"}},
		{"rostopic://chatter:=news", Rule{Type: TypeTopic, Match: "chatter", Replacement: "news"}},
		{"rosservice://add:=sum", Rule{Type: TypeService, Match: "add", Replacement: "sum"}},
		{"talker:rostopic://chatter:=news", Rule{Type: TypeTopic, NodeName: "talker", Match: "chatter", Replacement: "news"}},
		{"foo:={node}/bar", Rule{Type: TypeTopicOrService, Match: "foo", Replacement: "{node}/bar"}},
		{"__node:=listener", Rule{Type: TypeNodeName, Replacement: "listener"}},
		{"__name:=listener", Rule{Type: TypeNodeName, Replacement: "listener"}},
		{"talker:__node:=listener", Rule{Type: TypeNodeName, NodeName: "talker", Replacement: "listener"}},
		{"__ns:=/robot/arm", Rule{Type: TypeNamespace, Replacement: "/robot/arm"}},
		{"roster:=rota", Rule{Type: TypeTopicOrService, Match: "roster", Replacement: "rota"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			rule, err := ParseRule(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rule)
		})
	}
}

func TestParseRule_Invalid(t *testing.T) {
	tests := []struct {
		text  string
		index int
	}{
		{"", 0},
		{"foo", 3},
		{"foo:=", 5},
		{"foo:=bar/", 8},
		{":=bar", 0},
		{"/foo/*:=bar", 5},
		{"/foo/**:=bar", 5},
		{`foo:=\1`, 5},
		{"__node:=1node", 8},
		{"__node:=a/b", 9},
		{"__ns:=relative", 6},
		{"__ns:=/a//b", 9},
		{"foo:bar:baz:=x", 7},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := ParseRule(tt.text)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidRemapRule, errors.CodeOf(err))
			assert.Equal(t, tt.index, errors.IndexOf(err))
		})
	}
}

func TestRule_String(t *testing.T) {
	for _, text := range []string{
		"foo:=bar",
		"talker:rostopic://chatter:=news",
		"rosservice://add:=sum",
		"n:__node:=m",
		"__ns:=/x",
	} {
		rule, err := ParseRule(text)
		require.NoError(t, err)
		assert.Equal(t, text, rule.String())
	}
}

func TestParseArguments(t *testing.T) {
	argv := []string{"prog", "--verbose", "--ros-args", "-r", "foo:=bar", "--remap", "__ns:=/robot",
		"-e", "/secure", "--log-level", "--", "positional"}

	args, err := ParseArguments(argv)
	require.NoError(t, err)

	require.Len(t, args.Rules, 2)
	assert.Equal(t, "foo", args.Rules[0].Match)
	assert.Equal(t, TypeNamespace, args.Rules[1].Type)
	assert.Equal(t, "/secure", args.Enclave)
	assert.Equal(t, []int{0, 1, 11}, args.Unparsed)
	assert.Equal(t, []int{9}, args.UnparsedROS)
	assert.Equal(t, []string{"prog", "--verbose", "positional"}, args.RemoveROSArgs(argv))

	clone := args.Copy()
	clone.Rules[0].Match = "changed"
	assert.Equal(t, "foo", args.Rules[0].Match)
}

func TestParseArguments_Errors(t *testing.T) {
	_, err := ParseArguments([]string{"prog", "--ros-args", "-r"})
	assert.Equal(t, errors.CodeInvalidROSArgs, errors.CodeOf(err))

	_, err = ParseArguments([]string{"prog", "--ros-args", "--enclave"})
	assert.Equal(t, errors.CodeInvalidROSArgs, errors.CodeOf(err))

	_, err = ParseArguments([]string{"prog", "--ros-args", "-r", "foo"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidROSArgs, errors.CodeOf(err))
	assert.True(t, errors.Is(err, errors.CodeInvalidRemapRule))

	args, err := ParseArguments([]string{"-r", "foo:=bar"})
	require.NoError(t, err)
	assert.Empty(t, args.Rules, "flags outside --ros-args are not ROS arguments")
}

func mustArgs(t *testing.T, rules ...string) *Arguments {
	t.Helper()
	argv := []string{"--ros-args"}
	for _, r := range rules {
		argv = append(argv, "-r", r)
	}
	args, err := ParseArguments(argv)
	require.NoError(t, err)
	return args
}

func TestTopicName(t *testing.T) {
	local := mustArgs(t, "chatter:=local_news", "listener:rostopic://scan:=laser")
	global := mustArgs(t, "chatter:=global_news", "/status:={node}/status", "rosservice://odom:=odometry")

	got, ok, err := TopicName(local, global, "/ns/chatter", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/ns/local_news", got, "local rules win")

	got, ok, err = TopicName(nil, global, "/ns/chatter", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/ns/global_news", got)

	got, ok, err = TopicName(local, global, "/status", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/ns/talker/status", got)

	_, ok, err = TopicName(local, global, "/ns/scan", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.False(t, ok, "rule is for another node")

	got, ok, err = TopicName(local, global, "/ns/scan", "listener", "/ns", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/ns/laser", got)

	_, ok, err = TopicName(local, global, "/ns/odom", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.False(t, ok, "service rules do not apply to topics")

	got, ok, err = ServiceName(local, global, "/ns/odom", "talker", "/ns", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/ns/odometry", got)
}

func TestNodeNameAndNamespace(t *testing.T) {
	local := mustArgs(t, "talker:__node:=speaker")
	global := mustArgs(t, "__node:=everyone", "__ns:=/robot")

	name, ok := NodeName(local, global, "talker")
	assert.True(t, ok)
	assert.Equal(t, "speaker", name)

	name, ok = NodeName(local, global, "listener")
	assert.True(t, ok)
	assert.Equal(t, "everyone", name)

	ns, ok := NodeNamespace(local, global, "talker")
	assert.True(t, ok)
	assert.Equal(t, "/robot", ns)

	_, ok = NodeName(nil, nil, "talker")
	assert.False(t, ok)
}
