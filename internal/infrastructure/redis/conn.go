package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// defaultBuffer is the per-subscription channel size.
const defaultBuffer = 128

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger for connection events.
func WithLogger(logger Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithBuffer sets the number of messages each subscription channel holds.
func WithBuffer(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// Conn publishes and subscribes through Redis pub/sub. It implements bus.Conn.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Conn struct {
	client redis.UniversalClient
	buffer int
	logger Logger

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

var _ bus.Conn = (*Conn)(nil)

// Connect creates a Redis client from cfg and verifies it with PING.
//
// Parameters:
//   - ctx: Bounds the PING
//   - cfg: Redis configuration from graybus.yaml
//   - opts: Optional logger and buffer size
//
// Returns:
//   - *Conn: Connected client ready for use
//   - error: ErrConnectionFailed if the server does not answer
func Connect(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Conn, error) {
	ropts := &redis.Options{
		Addr:        cfg.Addr,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.GetDialTimeout(),
	}
	if cfg.TLS {
		ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.Addr, err)
	}

	return New(client, opts...), nil
}

// New wraps an existing client. Close closes the client.
func New(client redis.UniversalClient, opts ...Option) *Conn {
	c := &Conn{
		client: client,
		buffer: defaultBuffer,
		subs:   make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish sends payload to the channel named subject.
func (c *Conn) Publish(ctx context.Context, subject string, payload []byte) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	if subject == "" || topic.IsPattern(subject) {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	if err := c.client.Publish(ctx, subject, payload).Err(); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPublishFailed, subject, err)
	}
	return nil
}

// Subscribe registers interest in subject.
//
// Exact subjects use SUBSCRIBE. Patterns use PSUBSCRIBE with a glob that
// over-approximates the pattern; deliveries the glob admits but the pattern
// does not (a "*" spanning several levels) are filtered out by Next.
// Subscribe returns once the server has confirmed the subscription.
func (c *Conn) Subscribe(ctx context.Context, subject string) (bus.RawSubscription, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidSubject)
	}
	if c.isClosed() {
		return nil, ErrConnClosed
	}

	var ps *redis.PubSub
	if topic.IsPattern(subject) {
		ps = c.client.PSubscribe(ctx, Glob(subject))
	} else {
		ps = c.client.Subscribe(ctx, subject)
	}

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %q: %w", ErrSubscribeFailed, subject, err)
	}

	s := &subscription{
		pattern: subject,
		ps:      ps,
		ch:      ps.Channel(redis.WithChannelSize(c.buffer)),
		conn:    c,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ps.Close()
		return nil, ErrConnClosed
	}
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	return s, nil
}

// Close ends every subscription opened through this connection and closes
// the client.
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

	for s := range subs {
		if err := s.close(); err != nil && c.logger != nil {
			c.logger.Warn("redis subscription close failed", "subject", s.pattern, "error", err)
		}
	}
	return c.client.Close()
}

// HealthCheck pings the server.
func (c *Conn) HealthCheck(ctx context.Context) error {
	if c.isClosed() {
		return ErrConnClosed
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) forget(s *subscription) {
	c.mu.Lock()
	if c.subs != nil {
		delete(c.subs, s)
	}
	c.mu.Unlock()
}

// Glob converts a bus subject pattern into a Redis PSUBSCRIBE glob.
//
// "*" and a trailing ">" both become "*", which in a glob also matches
// across the "." delimiter. Glob metacharacters in exact tokens are escaped.
func Glob(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 4)

	parts := strings.Split(pattern, ".")
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		switch {
		case part == "*":
			b.WriteByte('*')
		case part == ">" && i == len(parts)-1:
			b.WriteByte('*')
		default:
			for _, r := range part {
				switch r {
				case '*', '?', '[', ']', '\\':
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// subscription implements bus.RawSubscription over a go-redis PubSub.
type subscription struct {
	pattern string
	ps      *redis.PubSub
	ch      <-chan *redis.Message
	conn    *Conn

	// done is closed by close; messages still queued in ch are never
	// returned after that.
	done chan struct{}
	once sync.Once
	err  error
}

func (s *subscription) Next(ctx context.Context) (bus.Delivery, error) {
	for {
		select {
		case <-s.done:
			return bus.Delivery{}, bus.ErrClosed
		default:
		}

		select {
		case msg, ok := <-s.ch:
			if !ok {
				return bus.Delivery{}, bus.ErrClosed
			}
			select {
			case <-s.done:
				return bus.Delivery{}, bus.ErrClosed
			default:
			}
			if !topic.Match(s.pattern, msg.Channel) {
				continue
			}
			return bus.Delivery{Subject: msg.Channel, Payload: []byte(msg.Payload)}, nil
		case <-s.done:
			return bus.Delivery{}, bus.ErrClosed
		case <-ctx.Done():
			return bus.Delivery{}, ctx.Err()
		}
	}
}

func (s *subscription) Unsubscribe() error {
	err := s.close()
	s.conn.forget(s)
	return err
}

// close closes the PubSub, which also closes its message channel.
func (s *subscription) close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.ps.Close()
	})
	return s.err
}
