// Package bus provides the typed publish/subscribe layer of Gray Logic Bus.
//
// Producers and consumers address messages with a structured topic.Topic and
// exchange typed values; the bus translates topics to broker subjects and
// runs every payload through a single encoding.Encoding chosen when the bus
// is constructed.
//
// # Contracts
//
//   - Publisher[M]: encode one message and hand it to the broker.
//   - Subscriber[M]: register interest in a topic and receive a Subscription.
//   - MessageBus[M]: both of the above for the same message type.
//
// Bus[M] implements MessageBus[M] on top of any Conn (NATS, MQTT, Redis or
// the in-memory broker, see internal/infrastructure).
//
// # Subscriptions
//
// A Subscription is an ordered, lazy sequence of decode outcomes, one per
// broker delivery. A payload that fails to decode is reported as a
// *DecodeError at its position and the sequence continues with the next
// delivery. The sequence ends (ErrClosed) when the subscription is closed or
// the broker connection goes away. Close is the only cancellation mechanism:
// it unregisters interest at the broker, and nothing delivered afterwards is
// observable.
//
//	sub, err := b.Subscribe(ctx, topic.Exacts("openfmb", "metermodule").WithPrefixMatch())
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//
//	for msg, err := range sub.All(ctx) {
//	    var decodeErr *bus.DecodeError
//	    if errors.As(err, &decodeErr) {
//	        log.Warn("skipping bad payload", "subject", decodeErr.Subject, "error", err)
//	        continue
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    handle(msg)
//	}
//
// # Concurrency
//
// A Bus is safe for concurrent use. Publish and Subscribe may be called from
// many goroutines; the connection is the only shared resource and the bus
// adds no locks or buffers on the hot path. A single Subscription is meant to
// be consumed by one goroutine; Close may be called from any goroutine.
//
// # Delivery Semantics
//
// Publish returns once the broker accepted (or rejected) the send attempt.
// A caller that gives up on a Publish through its context must treat the
// outcome as unknown. There is no persistence, replay or exactly-once
// delivery, and no ordering across subscriptions.
package bus
