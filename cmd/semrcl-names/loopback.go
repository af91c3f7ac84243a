package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360/semrcl/clock"
	"github.com/c360/semrcl/errors"
	"github.com/c360/semrcl/metric"
	"github.com/c360/semrcl/rcl"
	"github.com/c360/semrcl/rmw"
)

const loopbackType = rmw.MessageType("std_msgs/msg/String")

// runLoopback publishes on a timer and prints what its own subscription
// receives, driving both from a single wait set.
func runLoopback(env *environment, args []string) error {
	before, rosArgs := splitROSArgs(args)

	flagSet := newCommandFlags(env, "loopback")
	nodeName := flagSet.StringP("node", "n", "semrcl_loopback", "node name")
	namespace := flagSet.String("namespace", "/", "node namespace")
	topic := flagSet.StringP("topic", "t", "chatter", "topic to publish and subscribe on")
	message := flagSet.StringP("message", "m", "hello", "message payload prefix")
	period := flagSet.DurationP("period", "p", 100*time.Millisecond, "publish period")
	count := flagSet.Int("count", 3, "messages to receive before exiting")
	metricsAddr := flagSet.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	dumpMetrics := flagSet.Bool("metrics", false, "print the semrcl metrics after the last message")
	if err := flagSet.Parse(before); err != nil {
		return err
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	if *count <= 0 {
		return fmt.Errorf("count must be positive, got %d", *count)
	}

	cfg, err := env.loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(env.stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := startSession(ctx, cfg, logger, sessionArgs(cfg, rosArgs))
	if err != nil {
		return err
	}
	defer s.close()

	if *metricsAddr != "" {
		server := metric.NewServer(*metricsAddr, s.registry)
		if err := server.Start(); err != nil {
			return err
		}
		logger.Info("Serving metrics", "addr", server.Addr())
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	node := &rcl.Node{}
	if err := node.Init(s.context, *nodeName, *namespace, nil); err != nil {
		return err
	}
	defer func() { _ = node.Fini() }()

	pub := &rcl.Publisher{}
	if err := pub.Init(node, loopbackType, *topic, nil); err != nil {
		return err
	}
	defer func() { _ = pub.Fini(node) }()

	sub := &rcl.Subscription{}
	if err := sub.Init(node, loopbackType, *topic, nil); err != nil {
		return err
	}
	defer func() { _ = sub.Fini(node) }()

	sent := 0
	timer := &rcl.Timer{}
	if err := timer.Init(s.context, clock.Steady(), *period, func(_ *rcl.Timer, _ time.Duration) {
		sent++
		if err := pub.Publish([]byte(fmt.Sprintf("%s %d", *message, sent))); err != nil {
			logger.Warn("Publish failed", "topic", pub.TopicName(), "error", err)
		}
	}); err != nil {
		return err
	}
	defer func() { _ = timer.Fini() }()

	interrupt := &rcl.GuardCondition{}
	if err := interrupt.Init(s.context); err != nil {
		return err
	}
	defer func() { _ = interrupt.Fini() }()
	go func() {
		<-ctx.Done()
		_ = interrupt.Trigger()
	}()

	ws := &rcl.WaitSet{}
	if err := ws.Init(s.context, rcl.WaitSetSizes{Subscriptions: 1, GuardConditions: 1, Timers: 1}); err != nil {
		return err
	}
	defer func() { _ = ws.Fini() }()

	logger.Info("Loopback started",
		"topic", pub.TopicName(),
		"transport", s.context.Transport().Identifier(),
		"period", *period)

	if err := loopbackLoop(env, ws, sub, timer, interrupt, *count, cfg.WaitSet.Timeout, logger); err != nil {
		return err
	}
	if *dumpMetrics {
		return s.registry.WriteText(env.stdout)
	}
	return nil
}

// loopbackLoop waits until count messages were received or the interrupt
// guard condition fires.
func loopbackLoop(env *environment, ws *rcl.WaitSet, sub *rcl.Subscription, timer *rcl.Timer,
	interrupt *rcl.GuardCondition, count int, timeout time.Duration, logger *slog.Logger,
) error {
	for received := 0; received < count; {
		if err := ws.Clear(); err != nil {
			return err
		}
		if _, err := ws.AddSubscription(sub); err != nil {
			return err
		}
		if _, err := ws.AddTimer(timer); err != nil {
			return err
		}
		if _, err := ws.AddGuardCondition(interrupt); err != nil {
			return err
		}

		if err := ws.Wait(timeout); err != nil {
			if errors.IsEmptyResult(err) {
				continue
			}
			return err
		}

		if ws.GuardConditions()[0] != nil {
			logger.Info("Loopback interrupted", "received", received)
			return nil
		}
		if ws.Timers()[0] != nil {
			if err := timer.Call(); err != nil {
				return err
			}
		}
		if ws.Subscriptions()[0] != nil {
			msg, info, err := sub.Take()
			if errors.IsEmptyResult(err) {
				continue
			}
			if err != nil {
				return err
			}
			received++
			_, _ = fmt.Fprintf(env.stdout, "%s [seq %d] %s\n", sub.TopicName(), info.SequenceNumber, msg)
		}
	}
	return nil
}
