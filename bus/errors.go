package bus

import (
	"errors"
	"fmt"
)

// Domain-specific errors for bus operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrBusClosed is returned by Publish and Subscribe after Close.
	ErrBusClosed = errors.New("bus: bus closed")

	// ErrClosed marks the end of a subscription's sequence. Connections also
	// return it from RawSubscription.Next once no further deliveries will come.
	ErrClosed = errors.New("bus: subscription closed")

	// ErrEncode is returned when a message cannot be serialized.
	// The broker is never contacted in that case.
	ErrEncode = errors.New("bus: encode failed")

	// ErrDecode is matched by every *DecodeError yielded by a subscription.
	ErrDecode = errors.New("bus: decode failed")

	// ErrBroker is returned when the broker rejects an operation or the
	// connection is unusable.
	ErrBroker = errors.New("bus: broker operation failed")

	// ErrInvalidTopic is returned when a topic cannot be turned into a subject,
	// or when a wildcard topic is used for publishing.
	ErrInvalidTopic = errors.New("bus: invalid topic")
)

// DecodeError reports a delivery whose payload could not be decoded.
// It matches both ErrDecode and the encoding's own error.
type DecodeError struct {
	Subject  string
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bus: decode %s payload on %q: %v", e.Encoding, e.Subject, e.Err)
}

// Unwrap exposes ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
