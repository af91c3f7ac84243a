package rcl

import (
	"log/slog"
	"maps"
	"strings"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/names"
	"github.com/c360/semrcl/remap"
	"github.com/c360/semrcl/rmw"
)

// NodeOptions configures a Node.
type NodeOptions struct {
	// Arguments holds node-local arguments. Their --ros-args section
	// holds remap rules consulted before the global ones.
	Arguments []string

	// UseGlobalArguments applies the context's global remap rules after
	// the local ones.
	UseGlobalArguments bool

	// Substitutions resolves {key} tokens in names beyond the built-in
	// {node}, {ns} and {namespace}.
	Substitutions map[string]string
}

// DefaultNodeOptions returns options that honour the global arguments.
func DefaultNodeOptions() NodeOptions {
	return NodeOptions{UseGlobalArguments: true}
}

// Node groups entities under a name and namespace. The zero value is
// uninitialized.
type Node struct {
	impl *nodeImpl
}

type nodeImpl struct {
	context       *Context
	handle        rmw.Node
	name          string
	namespace     string
	localArgs     *remap.Arguments
	useGlobal     bool
	substitutions map[string]string
	logger        *slog.Logger
}

// Init creates the node on the context's transport. The namespace may be
// empty (meaning "/") or relative, in which case it is made absolute.
// Node name and namespace remap rules are applied before validation.
func (n *Node) Init(ctx *Context, name, namespace string, opts *NodeOptions) error {
	if n == nil {
		return errors.New(errors.CodeInvalidArgument, "node is nil")
	}
	if opts == nil {
		defaults := DefaultNodeOptions()
		opts = &defaults
	}
	if n.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "node is already initialized")
	}
	if !ctx.IsValid() {
		return errors.New(errors.CodeNotInit, "context is not initialized or has been shut down")
	}

	localArgs, err := remap.ParseArguments(opts.Arguments)
	if err != nil {
		return err
	}

	if err := names.ValidateNodeName(name); err != nil {
		return err
	}
	namespace = absoluteNamespace(namespace)
	if err := names.ValidateNamespace(namespace); err != nil {
		return err
	}

	var global *remap.Arguments
	if opts.UseGlobalArguments {
		global = ctx.GlobalArguments()
	}
	if remapped, ok := remap.NodeName(localArgs, global, name); ok {
		if err := names.ValidateNodeName(remapped); err != nil {
			return err
		}
		name = remapped
	}
	if remapped, ok := remap.NodeNamespace(localArgs, global, name); ok {
		remapped = absoluteNamespace(remapped)
		if err := names.ValidateNamespace(remapped); err != nil {
			return err
		}
		namespace = remapped
	}

	handle, err := ctx.Transport().CreateNode(name, namespace)
	if err != nil {
		return createFailed(errors.CodeError, err, "create node %s", names.FullyQualifiedNodeName(namespace, name))
	}

	impl := &nodeImpl{
		context:       ctx,
		handle:        handle,
		name:          name,
		namespace:     namespace,
		localArgs:     localArgs,
		useGlobal:     opts.UseGlobalArguments,
		substitutions: maps.Clone(opts.Substitutions),
	}
	impl.logger = ctx.Logger().With("node", names.FullyQualifiedNodeName(namespace, name))
	n.impl = impl

	ctx.entityCreated("node")
	impl.logger.Debug("Node initialized")
	return nil
}

func absoluteNamespace(namespace string) string {
	if namespace == "" {
		return "/"
	}
	if !strings.HasPrefix(namespace, "/") {
		return "/" + namespace
	}
	return namespace
}

// Fini destroys the node. It works after the context has been shut down.
// Finalizing an uninitialized node is a no-op.
func (n *Node) Fini() error {
	if n == nil || n.impl == nil {
		return nil
	}
	impl := n.impl
	n.impl = nil

	impl.context.entityDestroyed("node")
	if err := impl.context.Transport().DestroyNode(impl.handle); err != nil {
		impl.logger.Error("Failed to destroy node", "error", err)
		return convertTransportError(err)
	}
	impl.logger.Debug("Node finalized")
	return nil
}

// IsValid reports whether the node is initialized and its context is
// still valid.
func (n *Node) IsValid() bool {
	return n.IsValidExceptContext() && n.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check. Teardown
// paths use it after the context has begun shutting down.
func (n *Node) IsValidExceptContext() bool {
	return n != nil && n.impl != nil && n.impl.handle != nil
}

// Name returns the node name after remapping, or "" when uninitialized.
func (n *Node) Name() string {
	if !n.IsValidExceptContext() {
		return ""
	}
	return n.impl.name
}

// Namespace returns the absolute node namespace, or "" when uninitialized.
func (n *Node) Namespace() string {
	if !n.IsValidExceptContext() {
		return ""
	}
	return n.impl.namespace
}

// FullyQualifiedName returns namespace and name joined, e.g. "/ns/talker".
func (n *Node) FullyQualifiedName() string {
	if !n.IsValidExceptContext() {
		return ""
	}
	return names.FullyQualifiedNodeName(n.impl.namespace, n.impl.name)
}

// Context returns the context the node was created in.
func (n *Node) Context() *Context {
	if n == nil || n.impl == nil {
		return nil
	}
	return n.impl.context
}

// Logger returns the node logger.
func (n *Node) Logger() *slog.Logger {
	if n == nil || n.impl == nil {
		return slog.Default()
	}
	return n.impl.logger
}

func (n *Node) globalArguments() *remap.Arguments {
	if !n.impl.useGlobal {
		return nil
	}
	return n.impl.context.GlobalArguments()
}

// ResolveName turns input into the fully qualified name the transport
// sees: it expands substitutions and relative forms, applies remap rules
// unless onlyExpand is set, and validates the result. Validation failures
// are reported as CodeServiceNameInvalid when isService is set.
func (n *Node) ResolveName(input string, isService, onlyExpand bool) (string, error) {
	if !n.IsValidExceptContext() {
		return "", errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	impl := n.impl

	expanded, err := names.ExpandTopicName(input, impl.name, impl.namespace, impl.substitutions)
	if err != nil {
		if isService && errors.CodeOf(err) == errors.CodeTopicNameInvalid {
			return "", errors.Recode(err, errors.CodeServiceNameInvalid)
		}
		return "", err
	}

	resolved := expanded
	if !onlyExpand {
		remapFn := remap.TopicName
		if isService {
			remapFn = remap.ServiceName
		}
		remapped, ok, err := remapFn(impl.localArgs, n.globalArguments(), expanded,
			impl.name, impl.namespace, impl.substitutions)
		if err != nil {
			return "", err
		}
		if ok {
			resolved = remapped
		}
	}

	if err := names.ValidateFullTopicName(resolved); err != nil {
		if isService {
			return "", errors.Recode(err, errors.CodeServiceNameInvalid)
		}
		return "", err
	}
	return resolved, nil
}

// CountPublishers returns the number of publishers on a topic. The name
// is resolved like a publisher's.
func (n *Node) CountPublishers(topic string) (int, error) {
	if !n.IsValid() {
		return 0, errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	resolved, err := n.ResolveName(topic, false, false)
	if err != nil {
		return 0, topicResolveError(err)
	}
	count, err := n.impl.context.Transport().CountPublishers(resolved)
	return count, convertTransportError(err)
}

// CountSubscribers returns the number of subscriptions on a topic.
func (n *Node) CountSubscribers(topic string) (int, error) {
	if !n.IsValid() {
		return 0, errors.New(errors.CodeNodeInvalid, "node is invalid")
	}
	resolved, err := n.ResolveName(topic, false, false)
	if err != nil {
		return 0, topicResolveError(err)
	}
	count, err := n.impl.context.Transport().CountSubscribers(resolved)
	return count, convertTransportError(err)
}
