// Package rcl is the client library layer: contexts, nodes, publishers,
// subscriptions, clients, services, events, guard conditions, timers and
// wait sets built on top of an rmw.Transport.
//
// # Lifecycle
//
// Every entity is a small value whose zero state means "uninitialized".
// Init fills it in; Fini returns it to the zero state. Entities are only
// valid while the context they were created in is valid:
//
//	var ctx rcl.Context
//	if err := ctx.Init(rcl.InitOptions{Transport: inproc.New(), Arguments: os.Args}); err != nil {
//		return err
//	}
//	var node rcl.Node
//	if err := node.Init(&ctx, "talker", "/robot", nil); err != nil {
//		return err
//	}
//
// After Context.Shutdown, IsValid reports false for every entity of the
// context but IsValidExceptContext stays true, so teardown can still call
// Fini. A failed Init leaves the entity in its zero state.
//
// # Names
//
// Topic and service names given to entities are resolved by
// Node.ResolveName: substitutions such as "{node}" and "~" are expanded,
// remap rules from the node's and the context's --ros-args are applied,
// and the result is validated.
//
// # Waiting
//
// A WaitSet borrows entities for one wait at a time:
//
//	ws.Clear()
//	ws.AddSubscription(&sub)
//	ws.AddTimer(&timer)
//	if err := ws.Wait(time.Second); err != nil && !errors.IsEmptyResult(err) {
//		return err
//	}
//	if ws.Subscriptions()[0] != nil {
//		data, info, err := sub.Take()
//		...
//	}
//
// Timers have no transport primitive. The wait set bounds its timeout by
// the earliest pending timer and reports a timer as ready when it is due
// by its clock.
//
// # Errors
//
// Every failure carries an errors.Code. Transport failures are converted
// in one place; entity creation failures report the entity's own invalid
// code with the transport error kept in the chain.
package rcl
