// Package natsclient manages the NATS connection underneath rmw/natsrmw.
//
// A Client is created disconnected. Connect makes a single attempt bounded
// by its context and the client timeout; ConnectWithRetry repeats transient
// failures with the backoff of an errors.RetryConfig and reports
// errors.ErrMaxRetriesExceeded when it gives up. Once connected, lost
// connections are re-established by the nats.go library and reflected in
// Status:
//
//	disconnected → connecting → connected ⇄ reconnecting
//	                                 ↓
//	                               closed
//
// Status changes and reconnects are recorded in metric.Metrics, and
// ConnectionInfo feeds health.FromConnection.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("semrcl"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.ConnectWithRetry(ctx, errors.DefaultRetryConfig()); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	sub, err := client.Subscribe(ctx, "semrcl.rt.chatter", func(ctx context.Context, msg *nats.Msg) {
//	    fmt.Printf("Received: %s\n", msg.Data)
//	})
//
// Subscribe hands handlers the whole *nats.Msg so they can answer on
// msg.Reply. PublishRequest and NewInbox support long-lived reply inboxes
// and Request covers one-shot round trips.
//
// # Testing
//
// NewTestClient starts a throwaway NATS server with testcontainers and
// returns a connected client. Tests using it are tagged integration:
//
//	tc := natsclient.NewTestClient(t, natsclient.WithFastStartup())
//	_ = tc.Client.Publish(ctx, "subject", data)
//
// Unit tests that do not need a server use testutil.MockNATSClient.
package natsclient
