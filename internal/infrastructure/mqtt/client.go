package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with a retained online/offline status and
// filter subscriptions that survive reconnects.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// subscriptions is replayed against the broker after every reconnect,
	// since the clean session drops them server side.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected atomic.Bool

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is the optional logger for connection events and handler
// failures. *logging.Logger and *slog.Logger satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on the paho router goroutine, one message at a time. A
// handler that blocks holds up delivery for the whole client.
//
// Parameters:
//   - topic: The MQTT topic the message was received on (wildcards expanded)
//   - payload: The raw message payload, owned by the handler
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// ClientOption configures a Client before it first connects.
type ClientOption func(*Client)

// WithClientLogger sets the logger for connection events and handler
// failures, including those of the initial connect.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// Connect opens a connection to the MQTT broker named in cfg.
//
// When cfg.StatusTopic is set, the broker is left a retained offline Last
// Will and the client announces itself online on every (re)connect.
// Connect waits for the first CONNACK until ctx ends or the connect timeout
// passes, whichever comes first; paho keeps retrying in the background
// until then.
//
// Parameters:
//   - ctx: Bounds the initial connection attempt
//   - cfg: MQTT configuration from graybus.yaml
//   - opts: Client options, applied before the first connect attempt
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.MQTTConfig, opts ...ClientOption) (*Client, error) {
	pahoOpts := buildClientOptions(cfg)
	if cfg.StatusTopic != "" {
		configureLWT(pahoOpts, cfg.StatusTopic, cfg.Broker.ClientID)
	}

	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}
	for _, opt := range opts {
		opt(c)
	}

	pahoOpts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	pahoOpts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
		}
	})

	c.client = pahomqtt.NewClient(pahoOpts)
	if err := waitToken(ctx, c.client.Connect(), defaultConnectTimeout); err != nil {
		// Stop the background connect retry before giving up.
		c.client.Disconnect(0)
		if logger := c.getLogger(); logger != nil {
			logger.Error("MQTT connect failed", "client_id", cfg.Broker.ClientID, "error", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed yet.
	c.connected.Store(true)
	return c, nil
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()
	c.publishStatus("online", "")

	if logger := c.getLogger(); logger != nil {
		logger.Info("MQTT connected", "client_id", c.cfg.Broker.ClientID)
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)
	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "client_id", c.cfg.Broker.ClientID, "error", err)
	}
}

// restoreSubscriptions re-subscribes to all tracked filters after reconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.filter, sub.qos, c.wrapHandler(sub.handler))
		go func(filter string) {
			// The connect handler must not block the paho client.
			if token.WaitTimeout(defaultPublishTimeout) && token.Error() == nil {
				return
			}
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT resubscribe failed", "filter", filter, "error", token.Error())
			}
		}(sub.filter)
	}
}

// publishStatus publishes a retained status message without waiting for
// the broker.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	if c.cfg.StatusTopic == "" {
		return nil
	}
	payload := statusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.client.Publish(c.cfg.StatusTopic, byte(c.cfg.QoS), true, payload)
}

// Close publishes the graceful offline status, lets in-flight work drain
// for the quiesce period and disconnects. Closing a nil or already closed
// client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		if token := c.publishStatus("offline", reasonGraceful); token != nil {
			token.WaitTimeout(defaultPublishTimeout)
		}
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the client is between
// connections.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	return c.connected.Load() && c.client.IsConnected()
}

// SetLogger sets the logger for connection events and handler failures.
// Without one they are not reported.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error",
					"topic", msg.Topic(),
					"error", err,
				)
			}
		}
	}
}

// waitToken waits for a paho token to complete, for ctx to end, or for
// fallback to elapse when ctx has no deadline.
func waitToken(ctx context.Context, token pahomqtt.Token, fallback time.Duration) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fallback)
		defer cancel()
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}
