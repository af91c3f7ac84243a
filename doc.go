// Package semrcl is a client library tier for robot middleware: ROS style
// names, remapping, entity lifecycles and wait sets, on top of pluggable
// transports.
//
// # Layers
//
// semrcl is built in three layers, each usable on its own:
//
// Name layer (pure, no I/O):
//   - lexer: FSM tokenizer for names and remap rules
//   - names: validation and expansion of topic, node and namespace names
//   - remap: remap rules and --ros-args command line parsing
//
// Client layer:
//   - rcl: contexts, nodes, publishers, subscriptions, clients, services,
//     events, guard conditions, timers and the wait set
//
// Transport layer:
//   - rmw: the transport contract rcl is written against
//   - rmw/inproc: in-process transport for tests and single binaries
//   - rmw/natsrmw: transport over NATS subjects, built on natsclient
//
// Supporting packages: errors (return codes and classification), config
// (YAML configuration and transport construction), metric (Prometheus
// collectors), health (status reports), clock, codec (CBOR envelopes) and
// pkg/buffer (history caches).
//
// # Quick Start
//
//	cfg, err := config.LoadFromEnv()
//	if err != nil {
//	    return err
//	}
//	transport, closeTransport, err := config.NewTransport(ctx, cfg, logger, metrics)
//	if err != nil {
//	    return err
//	}
//	defer closeTransport(ctx)
//
//	rctx := &rcl.Context{}
//	if err := rctx.Init(rcl.InitOptions{Transport: transport, Logger: logger, Arguments: os.Args}); err != nil {
//	    return err
//	}
//
//	node := &rcl.Node{}
//	if err := node.Init(rctx, "talker", "/robot", nil); err != nil {
//	    return err
//	}
//	pub := &rcl.Publisher{}
//	if err := pub.Init(node, rmw.MessageType("std_msgs/msg/String"), "chatter", nil); err != nil {
//	    return err
//	}
//	_ = pub.Publish(payload)
//
// Entities are zero values until Init succeeds and return to zero values
// after Fini. A context that has been shut down leaves its entities
// allocated but invalid; they still have to be finalized.
//
// # Errors
//
// Every fallible operation returns an error carrying an errors.Code from a
// stable, banded taxonomy. Empty takes and wait timeouts are expected
// results: errors.IsEmptyResult reports them so callers can branch without
// logging.
//
// # Command Line
//
// cmd/semrcl-names lexes, expands, validates and resolves names and remap
// rules from the shell, and runs a loopback publisher/subscriber through
// the configured transport:
//
//	semrcl-names resolve --node talker chatter --ros-args -r chatter:=news
//	SEMRCL_TRANSPORT=nats semrcl-names loopback --count 5
//
// # Testing
//
// Unit tests run against rmw/inproc or testutil.FaultyTransport and use
// testify. Tests that need a NATS server are tagged integration and start
// one with testcontainers:
//
//	go test ./...
//	go test -tags integration ./...
package semrcl
