package nats

import "errors"

// Domain-specific errors for NATS operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when the connection is not currently
	// established (closed, or reconnecting).
	ErrNotConnected = errors.New("nats: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("nats: connection failed")

	// ErrPublishFailed is returned when a publish is not confirmed by the server.
	ErrPublishFailed = errors.New("nats: publish failed")

	// ErrSubscribeFailed is returned when a subscription cannot be registered.
	ErrSubscribeFailed = errors.New("nats: subscribe failed")

	// ErrInvalidSubject is returned when publishing to an empty or wildcard subject.
	ErrInvalidSubject = errors.New("nats: invalid subject")

	// ErrSlowConsumer is returned by Next after the server side of a
	// subscription dropped messages because its pending buffer was full.
	ErrSlowConsumer = errors.New("nats: slow consumer, messages dropped")
)
