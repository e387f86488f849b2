package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// Conn is a NATS connection implementing bus.Conn.
//
// Subjects are passed to the server verbatim: the bus subject format is the
// NATS subject format.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Conn struct {
	nc           *natsgo.Conn
	buffer       int
	flushTimeout time.Duration
	logger       Logger
}

var _ bus.Conn = (*Conn)(nil)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect establishes a connection to the NATS server at cfg.URL.
//
// Parameters:
//   - ctx: Checked before dialling; the dial itself is bounded by
//     cfg.ConnectTimeout
//   - cfg: NATS configuration from graybus.yaml
//   - opts: Optional logger, buffer and flush timeout
//
// Returns:
//   - *Conn: Connected client ready for use
//   - error: ErrConnectionFailed if the server cannot be reached
func Connect(ctx context.Context, cfg config.NATSConfig, opts ...Option) (*Conn, error) {
	c := &Conn{
		buffer:       defaultBuffer,
		flushTimeout: defaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	nc, err := natsgo.Connect(cfg.URL, buildNATSOptions(cfg, c)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, redactURL(cfg.URL), err)
	}
	c.nc = nc
	return c, nil
}

// Publish sends payload to subject and waits for the server to process it.
//
// If ctx has no deadline the round trip is bounded by the flush timeout.
func (c *Conn) Publish(ctx context.Context, subject string, payload []byte) error {
	if subject == "" || topic.IsPattern(subject) {
		return fmt.Errorf("%w: %q", ErrInvalidSubject, subject)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPublishFailed, subject, c.mapConnErr(err))
	}

	if err := c.flush(ctx); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPublishFailed, subject, c.mapConnErr(err))
	}
	return nil
}

// Subscribe registers a synchronous subscription for subject and waits for
// the server to acknowledge it, so messages published after Subscribe
// returns are delivered.
func (c *Conn) Subscribe(ctx context.Context, subject string) (bus.RawSubscription, error) {
	sub, err := c.nc.SubscribeSync(subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrSubscribeFailed, subject, c.mapConnErr(err))
	}

	if err := sub.SetPendingLimits(c.buffer, natsgo.DefaultSubPendingBytesLimit); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("%w: %q: %w", ErrSubscribeFailed, subject, err)
	}

	if err := c.flush(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("%w: %q: %w", ErrSubscribeFailed, subject, c.mapConnErr(err))
	}

	return &subscription{sub: sub}, nil
}

// Close closes the connection. Every subscription opened through it ends
// with bus.ErrClosed.
func (c *Conn) Close() error {
	if c.nc == nil {
		return nil
	}
	c.nc.Close()
	return nil
}

// HealthCheck verifies the connection is established and the server
// answers a round trip.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Conn) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("nats health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.flush(ctx); err != nil {
		return fmt.Errorf("nats health check: %w", err)
	}
	return nil
}

// IsConnected returns the current connection state.
func (c *Conn) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// flush waits for the server to process everything sent so far.
func (c *Conn) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.flushTimeout)
		defer cancel()
	}
	return c.nc.FlushWithContext(ctx)
}

func (c *Conn) mapConnErr(err error) error {
	if errors.Is(err, natsgo.ErrConnectionClosed) || errors.Is(err, natsgo.ErrConnectionDraining) {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	return err
}

func (c *Conn) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Conn) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

// subscription implements bus.RawSubscription over a synchronous NATS
// subscription. The client buffers at most the configured number of
// messages; beyond that it drops and Next reports ErrSlowConsumer once.
type subscription struct {
	sub  *natsgo.Subscription
	once sync.Once
	err  error
}

func (s *subscription) Next(ctx context.Context) (bus.Delivery, error) {
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		switch {
		case errors.Is(err, natsgo.ErrSlowConsumer):
			return bus.Delivery{}, fmt.Errorf("%w: %w", ErrSlowConsumer, err)
		case errors.Is(err, natsgo.ErrBadSubscription),
			errors.Is(err, natsgo.ErrConnectionClosed),
			!s.sub.IsValid():
			return bus.Delivery{}, fmt.Errorf("%w: %w", bus.ErrClosed, err)
		}
		return bus.Delivery{}, err
	}
	return bus.Delivery{Subject: msg.Subject, Payload: msg.Data}, nil
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		err := s.sub.Unsubscribe()
		if err != nil && !errors.Is(err, natsgo.ErrBadSubscription) && !errors.Is(err, natsgo.ErrConnectionClosed) {
			s.err = err
		}
	})
	return s.err
}
