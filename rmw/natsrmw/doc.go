// Package natsrmw implements rmw.Transport on NATS core subjects.
//
// # Subjects
//
// Fully qualified names map onto subjects below a configurable prefix:
//
//	/robot/cmd_vel   topic    semrcl.rt.robot.cmd_vel
//	/add_two_ints    service  semrcl.rs.add_two_ints
//
// QoS profiles with AvoidROSNamespaceConventions drop the rt/rs token.
//
// # Wire format
//
// Every payload travels inside a CBOR envelope carrying its kind, the type
// name, the writer GID, a sequence number and a source timestamp. Messages
// whose type name differs from the subscription's are dropped.
//
// # Histories
//
// Each subscription, service and client keeps its received samples in a
// bounded lock-free single-producer queue fed by the NATS delivery
// goroutine. KEEP_LAST discards the oldest sample when full, KEEP_ALL
// refuses the newest; both count as lost and raise MessageLost events.
//
// # Services
//
// Clients subscribe to a private reply inbox and send requests with that
// inbox as the reply subject. Services remember the reply subject of each
// request they take until they answer it. ServiceIsAvailable sends a ping
// envelope and treats "no responders" or silence as unavailable.
//
// # Limitations
//
// NATS core has no discovery. Matched counts, graph counts and matched
// events only see entities created through the same Transport, so
// matched events are reported as unsupported.
//
// Usage:
//
//	client, _ := natsclient.NewClient(url)
//	_ = client.Connect(ctx)
//	transport := natsrmw.New(client, natsrmw.WithPrefix("fleet"))
package natsrmw
