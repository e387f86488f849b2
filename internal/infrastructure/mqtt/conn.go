package mqtt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// defaultBuffer is the per-subscription delivery buffer.
const defaultBuffer = 128

// transport is the part of Client that Conn uses.
type transport interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
	Subscribe(ctx context.Context, filter string, qos byte, handler MessageHandler) error
	Unsubscribe(ctx context.Context, filter string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

var _ transport = (*Client)(nil)

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithBuffer sets how many deliveries each subscription holds before the
// client's message handling blocks.
func WithBuffer(n int) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithQoS sets the QoS used for publishes and subscriptions.
func WithQoS(qos byte) ConnOption {
	return func(c *Conn) {
		if qos <= maxQoS {
			c.qos = qos
		}
	}
}

// Conn adapts a Client to bus.Conn.
//
// Bus subjects are translated to MQTT topics ("." becomes "/", "*" becomes
// "+", a trailing ">" becomes "#"). Several bus subscriptions on the same
// filter share one MQTT subscription; each delivery is copied to all of
// them in turn. When a subscription's buffer is full the client's message
// handling waits for it, so a slow consumer slows the connection instead
// of losing messages.
//
// That wait is connection wide. Paho routes every inbound message on one
// goroutine, so one full subscription holds up delivery to all the other
// subscriptions on the Client, on any filter. Acknowledgements of QoS 1
// and 2 deliveries are delayed with it, and Publish and Subscribe calls
// whose tokens cannot complete meanwhile fail once their timeout passes.
// Give subscriptions that may fall behind their own Client.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Conn struct {
	client transport
	qos    byte
	buffer int

	// opMu serialises broker subscribe/unsubscribe round trips.
	opMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	filters map[string]map[*rawSubscription]struct{}
}

var _ bus.Conn = (*Conn)(nil)

// NewConn wraps client. The Conn owns the client: Close closes it.
func NewConn(client *Client, opts ...ConnOption) *Conn {
	return newConn(client, client.DefaultQoS(), opts...)
}

func newConn(t transport, qos byte, opts ...ConnOption) *Conn {
	c := &Conn{
		client:  t,
		qos:     qos,
		buffer:  defaultBuffer,
		filters: make(map[string]map[*rawSubscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish sends payload to the MQTT topic for subject. Messages are never
// retained.
func (c *Conn) Publish(ctx context.Context, subject string, payload []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	t, err := ToTopic(subject)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, t, payload, c.qos, false)
}

// Subscribe registers interest in subject. The first subscription on a
// filter subscribes at the broker and waits for its acknowledgement.
func (c *Conn) Subscribe(ctx context.Context, subject string) (bus.RawSubscription, error) {
	filter, err := ToFilter(subject)
	if err != nil {
		return nil, err
	}

	s := &rawSubscription{
		pattern: subject,
		filter:  filter,
		ch:      make(chan bus.Delivery, c.buffer),
		done:    make(chan struct{}),
		conn:    c,
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	set, exists := c.filters[filter]
	if !exists {
		set = make(map[*rawSubscription]struct{})
		c.filters[filter] = set
	}
	set[s] = struct{}{}
	c.mu.Unlock()

	if !exists {
		if err := c.client.Subscribe(ctx, filter, c.qos, c.dispatch(filter)); err != nil {
			c.remove(s)
			return nil, err
		}
	}
	return s, nil
}

// Close ends every subscription and closes the client.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	filters := c.filters
	c.filters = nil
	c.mu.Unlock()

	for _, set := range filters {
		for s := range set {
			s.stop()
		}
	}
	return c.client.Close()
}

// HealthCheck reports ErrConnClosed after Close, otherwise the state of the
// underlying client.
func (c *Conn) HealthCheck(ctx context.Context) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	return c.client.HealthCheck(ctx)
}

// SubscriptionCount returns the number of open bus subscriptions.
func (c *Conn) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, set := range c.filters {
		n += len(set)
	}
	return n
}

// dispatch returns the handler for one MQTT filter. It hands each message
// to every subscription on the filter, waiting while a buffer is full.
func (c *Conn) dispatch(filter string) MessageHandler {
	return func(mqttTopic string, payload []byte) error {
		d := bus.Delivery{Subject: FromTopic(mqttTopic)}
		for _, s := range c.snapshot(filter) {
			d.Payload = bytes.Clone(payload)
			select {
			case s.ch <- d:
			case <-s.done:
			}
		}
		return nil
	}
}

func (c *Conn) snapshot(filter string) []*rawSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.filters[filter]
	out := make([]*rawSubscription, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// remove drops s from its filter and reports whether it was the last one.
func (c *Conn) remove(s *rawSubscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.filters[s.filter]
	if !ok {
		return false
	}
	delete(set, s)
	if len(set) > 0 {
		return false
	}
	delete(c.filters, s.filter)
	return true
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// rawSubscription implements bus.RawSubscription for one bus subscription.
type rawSubscription struct {
	pattern string
	filter  string
	ch      chan bus.Delivery
	done    chan struct{}
	once    sync.Once
	conn    *Conn
}

func (s *rawSubscription) Next(ctx context.Context) (bus.Delivery, error) {
	for {
		select {
		case <-s.done:
			return bus.Delivery{}, bus.ErrClosed
		default:
		}

		select {
		case d := <-s.ch:
			select {
			case <-s.done:
				return bus.Delivery{}, bus.ErrClosed
			default:
			}
			// "#" also matches the parent level; ">" does not.
			if !topic.Match(s.pattern, d.Subject) {
				continue
			}
			return d, nil
		case <-s.done:
			return bus.Delivery{}, bus.ErrClosed
		case <-ctx.Done():
			return bus.Delivery{}, ctx.Err()
		}
	}
}

// Unsubscribe stops the subscription and, if it was the last one on its
// filter, unsubscribes at the broker.
func (s *rawSubscription) Unsubscribe() error {
	if !s.stop() {
		return nil
	}

	c := s.conn
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.remove(s) {
		return nil
	}
	// A disconnected client has already forgotten the filter and will not
	// restore it.
	err := c.client.Unsubscribe(context.Background(), s.filter)
	if err != nil && !errors.Is(err, ErrNotConnected) {
		return fmt.Errorf("unsubscribe %q: %w", s.filter, err)
	}
	return nil
}

// stop closes done and reports whether this call did it.
func (s *rawSubscription) stop() bool {
	stopped := false
	s.once.Do(func() {
		close(s.done)
		stopped = true
	})
	return stopped
}
