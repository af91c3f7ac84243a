// Package testutil provides test doubles and helpers shared by semrcl
// package tests.
//
// # Mock Implementations
//
// MockNATSClient is an in-memory stand-in for natsclient.Client covering
// the surface the NATS transport uses:
//   - Publish, PublishRequest and Subscribe with per-subscription serial
//     delivery
//   - Request with nats.ErrNoResponders when nobody listens
//   - NewInbox for reply subjects
//   - ConnectionInfo with SetConnected to simulate an outage
//
// FaultyTransport wraps any rmw.Transport and makes chosen operations fail,
// which drives the unwind paths of entity initialization and finalization:
//
//	ft := testutil.NewFaultyTransport(inproc.New())
//	ft.FailTimes("CreateSubscription", testutil.ErrMockFailed, 1)
//
// # Helpers
//
// NewTestLogger routes slog output through t.Log. WaitForMessageCount,
// AssertMessageReceived and AssertNoMessages inspect what a MockNATSClient
// has seen.
//
// Nothing in this package needs an external server. Tests that do are
// behind the "integration" build tag and use natsclient.NewTestClient.
package testutil
