package rcl

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/health"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/remap"
	"github.com/c360/semrcl/rmw"
)

// InitOptions configures a Context.
type InitOptions struct {
	// Transport is the middleware every entity of the context is created
	// on. Required.
	Transport rmw.Transport

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics records entity, wait and error counters. Nil disables them.
	Metrics *metric.Metrics

	// Arguments is the process command line. Its --ros-args section holds
	// the global remap rules applied by every node.
	Arguments []string
}

// Context is the explicit process-wide state entities are created in. The
// zero value is uninitialized; call Init before use and Shutdown then Fini
// to tear it down.
type Context struct {
	impl *contextImpl
}

type contextImpl struct {
	transport  rmw.Transport
	logger     *slog.Logger
	metrics    *metric.Metrics
	instanceID uuid.UUID
	globalArgs *remap.Arguments
	argv       []string

	valid atomic.Bool
}

// Init initializes a zero Context.
func (c *Context) Init(opts InitOptions) error {
	if c == nil {
		return errors.New(errors.CodeInvalidArgument, "context is nil")
	}
	if opts.Transport == nil {
		return errors.New(errors.CodeInvalidArgument, "transport is required")
	}
	if c.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "context is already initialized")
	}

	args, err := remap.ParseArguments(opts.Arguments)
	if err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	impl := &contextImpl{
		transport:  opts.Transport,
		metrics:    opts.Metrics,
		instanceID: uuid.New(),
		globalArgs: args,
		argv:       append([]string(nil), opts.Arguments...),
	}
	impl.logger = logger.With("context", impl.instanceID.String())
	impl.valid.Store(true)
	c.impl = impl

	impl.logger.Debug("Context initialized",
		"transport", opts.Transport.Identifier(), "global_rules", len(args.Rules))
	return nil
}

// IsValid reports whether the context is initialized and not shut down.
func (c *Context) IsValid() bool {
	return c != nil && c.impl != nil && c.impl.valid.Load()
}

// InstanceID identifies this initialization of the context. It is the
// zero UUID for an uninitialized context.
func (c *Context) InstanceID() uuid.UUID {
	if c == nil || c.impl == nil {
		return uuid.Nil
	}
	return c.impl.instanceID
}

// GlobalArguments returns the parsed global arguments, or nil.
func (c *Context) GlobalArguments() *remap.Arguments {
	if c == nil || c.impl == nil {
		return nil
	}
	return c.impl.globalArgs
}

// UnparsedArguments returns the command line without its ROS arguments.
func (c *Context) UnparsedArguments() []string {
	if c == nil || c.impl == nil {
		return nil
	}
	return c.impl.globalArgs.RemoveROSArgs(c.impl.argv)
}

// Logger returns the context logger, or slog.Default() when uninitialized.
func (c *Context) Logger() *slog.Logger {
	if c == nil || c.impl == nil {
		return slog.Default()
	}
	return c.impl.logger
}

// Transport returns the transport the context was initialized with.
func (c *Context) Transport() rmw.Transport {
	if c == nil || c.impl == nil {
		return nil
	}
	return c.impl.transport
}

// Health reports the transport connection when the transport can describe
// it, and the context state otherwise.
func (c *Context) Health() health.Status {
	if !c.IsValid() {
		return health.NewUnhealthy("context", "context is not initialized or has been shut down")
	}
	if r, ok := c.impl.transport.(rmw.HealthReporter); ok {
		return health.Aggregate("context", r.Health())
	}
	return health.NewHealthy("context", "running")
}

// Shutdown invalidates the context and shuts the transport down. Entities
// stay allocated and must still be finalized. A second call fails with
// CodeAlreadyShutdown.
func (c *Context) Shutdown() error {
	if c == nil || c.impl == nil {
		return errors.New(errors.CodeNotInit, "context is not initialized")
	}
	if !c.impl.valid.CompareAndSwap(true, false) {
		return errors.New(errors.CodeAlreadyShutdown, "context has already been shut down")
	}

	if err := convertTransportError(c.impl.transport.Shutdown()); err != nil {
		c.impl.metrics.RecordError(errors.CodeOf(err).String())
		return err
	}
	c.impl.logger.Debug("Context shut down")
	return nil
}

// Fini releases a context that has been shut down and returns it to the
// zero state. Finalizing an uninitialized context is a no-op.
func (c *Context) Fini() error {
	if c == nil || c.impl == nil {
		return nil
	}
	if c.impl.valid.Load() {
		return errors.New(errors.CodeInvalidArgument, "context must be shut down before it is finalized")
	}
	c.impl = nil
	return nil
}

// entityCreated and entityDestroyed keep the active entity gauge.
func (c *Context) entityCreated(kind string) {
	if c != nil && c.impl != nil {
		c.impl.metrics.EntityCreated(kind)
	}
}

func (c *Context) entityDestroyed(kind string) {
	if c != nil && c.impl != nil {
		c.impl.metrics.EntityDestroyed(kind)
	}
}

func (c *Context) metrics() *metric.Metrics {
	if c == nil || c.impl == nil {
		return nil
	}
	return c.impl.metrics
}
