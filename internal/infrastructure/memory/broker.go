package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// DefaultBuffer is the per-subscription buffer used when Config.Buffer is 0.
const DefaultBuffer = 128

// Errors returned by the in-memory broker.
var (
	// ErrConnClosed is returned by operations on a closed connection.
	ErrConnClosed = errors.New("memory: connection closed")

	// ErrInvalidSubject is returned for empty subjects or wildcard publishes.
	ErrInvalidSubject = errors.New("memory: invalid subject")
)

// Config configures a Broker.
type Config struct {
	// Buffer is the number of deliveries each subscription can hold.
	Buffer int
}

// Broker routes deliveries between connections in the same process.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Broker struct {
	buffer int
	nextID atomic.Uint64

	mu   sync.RWMutex
	subs map[uint64]*subscription
}

// NewBroker creates an empty broker.
func NewBroker(cfg Config) *Broker {
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		buffer: buffer,
		subs:   make(map[uint64]*subscription),
	}
}

// Dial opens a connection to the broker.
func (b *Broker) Dial() *Conn {
	return &Conn{
		broker: b,
		subs:   make(map[uint64]*subscription),
	}
}

// SubscriptionCount returns the number of registered subscriptions.
func (b *Broker) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) add(s *subscription) {
	b.mu.Lock()
	b.subs[s.id] = s
	b.mu.Unlock()
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// matching returns a snapshot of subscriptions whose pattern matches subject.
func (b *Broker) matching(subject string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscription
	for _, s := range b.subs {
		if topic.Match(s.pattern, subject) {
			out = append(out, s)
		}
	}
	return out
}

// Conn is one client connection to a Broker. It implements bus.Conn.
type Conn struct {
	broker *Broker

	mu     sync.Mutex
	closed bool
	subs   map[uint64]*subscription
}

var _ bus.Conn = (*Conn)(nil)

// Publish delivers payload to every subscription matching subject.
//
// The payload is copied once per subscriber. Publish blocks while a
// subscriber's buffer is full and returns ctx.Err() if ctx ends first; in
// that case earlier subscribers may already have received the delivery.
func (c *Conn) Publish(ctx context.Context, subject string, payload []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	if subject == "" || topic.IsPattern(subject) {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}

	for _, s := range c.broker.matching(subject) {
		d := bus.Delivery{Subject: subject, Payload: bytes.Clone(payload)}
		select {
		case s.ch <- d:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscription for a subject or pattern.
func (c *Conn) Subscribe(_ context.Context, subject string) (bus.RawSubscription, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidSubject)
	}

	s := &subscription{
		id:      c.broker.nextID.Add(1),
		pattern: subject,
		ch:      make(chan bus.Delivery, c.broker.buffer),
		done:    make(chan struct{}),
		conn:    c,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnClosed
	}
	c.subs[s.id] = s
	c.mu.Unlock()

	c.broker.add(s)
	return s, nil
}

// Close ends every subscription opened through this connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	return nil
}

// HealthCheck reports ErrConnClosed once the connection is closed.
func (c *Conn) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isClosed() {
		return ErrConnClosed
	}
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	if c.subs != nil {
		delete(c.subs, id)
	}
	c.mu.Unlock()
}

// subscription implements bus.RawSubscription.
type subscription struct {
	id      uint64
	pattern string
	ch      chan bus.Delivery
	done    chan struct{}
	once    sync.Once
	conn    *Conn
}

func (s *subscription) Next(ctx context.Context) (bus.Delivery, error) {
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
			return d, nil
		}
	case <-s.done:
		return bus.Delivery{}, bus.ErrClosed
	case <-ctx.Done():
		return bus.Delivery{}, ctx.Err()
	}
}

func (s *subscription) Unsubscribe() error {
	s.stop()
	s.conn.forget(s.id)
	return nil
}

// stop removes the subscription from the broker and wakes blocked readers
// and publishers. Buffered deliveries are never read after this.
func (s *subscription) stop() {
	s.once.Do(func() {
		s.conn.broker.remove(s.id)
		close(s.done)
	})
}
