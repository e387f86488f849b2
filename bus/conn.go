package bus

import "context"

// Conn is the broker client the bus is built on.
//
// Implementations must be safe for concurrent Publish and Subscribe calls.
// Subjects are dot-delimited; subscribe subjects may contain "*" levels and
// a trailing ">".
type Conn interface {
	// Publish sends payload to a concrete subject and returns once the broker
	// accepted or rejected the attempt.
	Publish(ctx context.Context, subject string, payload []byte) error

	// Subscribe registers interest in subject.
	Subscribe(ctx context.Context, subject string) (RawSubscription, error)

	// Close releases the connection. Open subscriptions end with ErrClosed.
	Close() error
}

// RawSubscription is the broker's sequence of deliveries for one Subscribe.
type RawSubscription interface {
	// Next blocks until the next delivery, ctx is done, or the sequence ends.
	// The end of the sequence is reported with an error matching ErrClosed.
	// Other errors are transient; the sequence continues after them.
	Next(ctx context.Context) (Delivery, error)

	// Unsubscribe unregisters interest at the broker. Deliveries not yet
	// consumed are discarded. It is safe to call more than once.
	Unsubscribe() error
}

// Delivery is one message as received from the broker.
type Delivery struct {
	Subject string
	Payload []byte
}
