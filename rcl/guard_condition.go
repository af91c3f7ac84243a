package rcl

import (
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/rmw"
)

// GuardCondition is a manually triggered waitable. Triggering one that is
// part of a wait set wakes the wait, which is the usual way to interrupt a
// blocking Wait from another goroutine. The zero value is uninitialized.
//
// A guard condition must not be in two wait sets that are waited on at the
// same time.
type GuardCondition struct {
	impl *guardConditionImpl
}

type guardConditionImpl struct {
	context *Context
	handle  rmw.GuardConditionHandle
}

// Init creates the guard condition on the context's transport.
func (g *GuardCondition) Init(ctx *Context) error {
	if g == nil {
		return errors.New(errors.CodeInvalidArgument, "guard condition is nil")
	}
	if g.impl != nil {
		return errors.New(errors.CodeAlreadyInit, "guard condition is already initialized")
	}
	if !ctx.IsValid() {
		return errors.New(errors.CodeNotInit, "context is not initialized or has been shut down")
	}
	handle, err := ctx.Transport().CreateGuardCondition()
	if err != nil {
		return createFailed(errors.CodeError, err, "create guard condition")
	}
	g.impl = &guardConditionImpl{context: ctx, handle: handle}
	ctx.entityCreated("guard_condition")
	return nil
}

// Fini destroys the guard condition. Finalizing an uninitialized guard
// condition is a no-op.
func (g *GuardCondition) Fini() error {
	if g == nil || g.impl == nil {
		return nil
	}
	impl := g.impl
	g.impl = nil

	impl.context.entityDestroyed("guard_condition")
	if err := impl.context.Transport().DestroyGuardCondition(impl.handle); err != nil {
		impl.context.Logger().Error("Failed to destroy guard condition", "error", err)
		return convertTransportError(err)
	}
	return nil
}

// IsValid reports whether the guard condition is initialized and its
// context is still valid.
func (g *GuardCondition) IsValid() bool {
	return g.IsValidExceptContext() && g.impl.context.IsValid()
}

// IsValidExceptContext is IsValid without the context check.
func (g *GuardCondition) IsValidExceptContext() bool {
	return g != nil && g.impl != nil && g.impl.handle != nil
}

// Trigger sets the guard condition. It stays set until a wait observes it.
// Safe for concurrent use.
func (g *GuardCondition) Trigger() error {
	if !g.IsValidExceptContext() {
		return errors.New(errors.CodeInvalidArgument, "guard condition is invalid")
	}
	return convertTransportError(g.impl.handle.Trigger())
}

func (g *GuardCondition) waitable() rmw.Waitable {
	if !g.IsValidExceptContext() {
		return nil
	}
	return g.impl.handle
}
