package bus

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// Publisher sends messages of type M.
type Publisher[M any] interface {
	// Publish encodes msg and sends it to the subject derived from t.
	// t must not contain wildcards or a remainder match.
	Publish(ctx context.Context, t topic.Topic, msg M) error
}

// Subscriber receives messages of type M.
type Subscriber[M any] interface {
	// Subscribe registers interest in t, honouring its wildcards and
	// remainder match, and returns the live sequence of deliveries.
	Subscribe(ctx context.Context, t topic.Topic) (*Subscription[M], error)
}

// MessageBus is both a Publisher and a Subscriber for the same message type.
type MessageBus[M any] interface {
	Publisher[M]
	Subscriber[M]
}

// Bus is a MessageBus backed by a broker connection and a fixed encoding.
//
// Several buses, one per message type, may share a connection.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Bus[M any] struct {
	conn   Conn
	enc    encoding.Encoding[M]
	opts   options
	closed atomic.Bool
}

var _ MessageBus[[]byte] = (*Bus[[]byte])(nil)

// New creates a bus that publishes and subscribes through conn using enc.
//
// Parameters:
//   - conn: Broker connection, shared or owned (see WithOwnedConn)
//   - enc: Encoding applied to every message on this bus
//   - opts: Optional logger, metrics recorder and ownership settings
//
// Returns:
//   - *Bus[M]: Ready for use
func New[M any](conn Conn, enc encoding.Encoding[M], opts ...Option) *Bus[M] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[M]{
		conn: conn,
		enc:  enc,
		opts: o,
	}
}

// Encoding returns the encoding bound to the bus.
func (b *Bus[M]) Encoding() encoding.Encoding[M] {
	return b.enc
}

// Publish encodes msg and sends it to the subject for t.
//
// The topic is validated and the message encoded before the broker is
// contacted, so an invalid topic or an encode failure never produces a send.
//
// Returns:
//   - error: nil once the broker accepted the send attempt; otherwise an
//     error matching ErrInvalidTopic, ErrEncode, ErrBroker or ErrBusClosed
func (b *Bus[M]) Publish(ctx context.Context, t topic.Topic, msg M) error {
	name := b.enc.Name()
	if b.closed.Load() {
		b.opts.recorder.Published(name, 0, ErrBusClosed)
		return ErrBusClosed
	}

	subject, err := topic.PublishSubject(t)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidTopic, err)
		b.opts.recorder.Published(name, 0, err)
		return err
	}

	var buf bytes.Buffer
	if err := b.enc.Encode(msg, &buf); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
		b.opts.recorder.Published(name, 0, err)
		return err
	}

	if err := b.conn.Publish(ctx, subject, buf.Bytes()); err != nil {
		err = fmt.Errorf("%w: publish %q: %w", ErrBroker, subject, err)
		b.opts.recorder.Published(name, buf.Len(), err)
		return err
	}

	b.opts.recorder.Published(name, buf.Len(), nil)
	b.opts.logger.Debug("bus message published",
		"subject", subject,
		"encoding", name,
		"bytes", buf.Len(),
	)
	return nil
}

// Subscribe registers interest in t at the broker.
//
// The returned Subscription must be closed by the caller; closing it is what
// unregisters interest.
//
// Returns:
//   - *Subscription[M]: Live sequence of decoded messages
//   - error: ErrInvalidTopic, ErrBroker (registration failed) or ErrBusClosed
func (b *Bus[M]) Subscribe(ctx context.Context, t topic.Topic) (*Subscription[M], error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	subject, err := topic.ToSubject(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}

	raw, err := b.conn.Subscribe(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %q: %w", ErrBroker, subject, err)
	}

	b.opts.logger.Debug("bus subscription registered",
		"subject", subject,
		"encoding", b.enc.Name(),
	)
	return newSubscription(subject, raw, b.enc, b.opts), nil
}

// Close releases the bus. Publish and Subscribe fail with ErrBusClosed
// afterwards. Subscriptions already handed out keep running unless the bus
// owns the connection, in which case the connection is closed and they end.
func (b *Bus[M]) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if b.opts.ownsConn {
		return b.conn.Close()
	}
	return nil
}
