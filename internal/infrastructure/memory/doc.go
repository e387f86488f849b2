// Package memory provides an in-process broker implementing bus.Conn.
//
// It follows the broker's subject semantics exactly ("*" matches one level,
// a trailing ">" one or more), so code written against NATS, MQTT or Redis
// behaves the same against it. Useful for tests and single-process
// deployments.
//
// # Backpressure
//
// Each subscription owns a bounded buffer (DefaultBuffer deliveries unless
// configured). Publish blocks while a matching subscriber's buffer is full,
// until the subscriber catches up, unsubscribes, or the publisher's context
// ends. Nothing is dropped and memory use stays bounded.
//
// # Usage
//
//	broker := memory.NewBroker(memory.Config{Buffer: 64})
//	conn := broker.Dial()
//	defer conn.Close()
//
//	b := bus.New(conn, encoding.JSON[Reading]{})
package memory
