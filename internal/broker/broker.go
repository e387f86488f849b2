package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-bus/bus"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/memory"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/nats"
	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/redis"
)

// ErrUnsupportedBackend is returned for a backend name Open does not know.
var ErrUnsupportedBackend = errors.New("broker: unsupported backend")

// Option configures Open.
type Option func(*options)

type options struct {
	memory *memory.Broker
}

// WithMemoryBroker makes the memory backend dial b instead of a fresh
// broker, so several connections in one process can reach each other.
func WithMemoryBroker(b *memory.Broker) Option {
	return func(o *options) {
		o.memory = b
	}
}

// Open connects to the backend selected by cfg.Bus.Backend.
//
// The returned connection belongs to the caller; pass bus.WithOwnedConn to
// hand it to a Bus.
//
// Parameters:
//   - ctx: Bounds connection establishment where the backend supports it
//   - cfg: Validated configuration
//   - log: Logger for connection events
//
// Returns:
//   - bus.Conn: Connected backend
//   - error: ErrUnsupportedBackend or the backend's connection error
func Open(ctx context.Context, cfg *config.Config, log *logging.Logger, opts ...Option) (bus.Conn, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	backendLog := log.With("backend", cfg.Bus.Backend)

	switch cfg.Bus.Backend {
	case config.BackendNATS:
		conn, err := nats.Connect(ctx, cfg.NATS,
			nats.WithLogger(backendLog),
			nats.WithBuffer(cfg.Bus.Buffer),
			nats.WithFlushTimeout(cfg.GetPublishTimeout()),
		)
		if err != nil {
			return nil, fmt.Errorf("opening nats backend: %w", err)
		}
		return conn, nil

	case config.BackendMQTT:
		client, err := mqtt.Connect(ctx, cfg.MQTT, mqtt.WithClientLogger(backendLog))
		if err != nil {
			return nil, fmt.Errorf("opening mqtt backend: %w", err)
		}
		return mqtt.NewConn(client,
			mqtt.WithBuffer(cfg.Bus.Buffer),
			mqtt.WithQoS(client.DefaultQoS()),
		), nil

	case config.BackendRedis:
		conn, err := redis.Connect(ctx, cfg.Redis,
			redis.WithLogger(backendLog),
			redis.WithBuffer(cfg.Bus.Buffer),
		)
		if err != nil {
			return nil, fmt.Errorf("opening redis backend: %w", err)
		}
		return conn, nil

	case config.BackendMemory:
		b := o.memory
		if b == nil {
			b = memory.NewBroker(memory.Config{Buffer: cfg.Bus.Buffer})
		}
		return b.Dial(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Bus.Backend)
	}
}
