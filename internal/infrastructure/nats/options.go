package nats

import (
	"crypto/tls"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/gray-logic-bus/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultFlushTimeout bounds the publish round trip when the caller's
	// context has no deadline.
	defaultFlushTimeout = 5 * time.Second

	// defaultBuffer is the per-subscription pending message limit.
	defaultBuffer = 128

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger for connection events and handler errors.
func WithLogger(logger Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithBuffer sets how many messages each subscription may hold before the
// client starts dropping and reporting ErrSlowConsumer.
func WithBuffer(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithFlushTimeout bounds the server round trip of a publish whose context
// has no deadline.
func WithFlushTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.flushTimeout = d
		}
	}
}

// buildNATSOptions translates Gray Logic Bus config into nats.go options.
//
// This configures:
//   - Client name (shown in server monitoring)
//   - Token or user/password authentication
//   - Reconnect behaviour
//   - Connect timeout
//   - TLS (if enabled)
//   - Connection event callbacks routed to c's logger
func buildNATSOptions(cfg config.NATSConfig, c *Conn) []natsgo.Option {
	opts := []natsgo.Option{
		natsgo.Name(cfg.Name),
		natsgo.Timeout(cfg.GetConnectTimeout()),
		natsgo.ReconnectWait(cfg.GetReconnectWait()),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				c.logWarn("NATS connection lost", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			c.logWarn("NATS connection restored", "url", nc.ConnectedUrlRedacted())
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			c.logError("NATS async error", "subject", subject, "error", err)
		}),
	}

	switch {
	case cfg.Auth.Token != "":
		opts = append(opts, natsgo.Token(cfg.Auth.Token))
	case cfg.Auth.Username != "":
		opts = append(opts, natsgo.UserInfo(cfg.Auth.Username, cfg.Auth.Password))
	}

	if cfg.TLS {
		opts = append(opts, natsgo.Secure(&tls.Config{MinVersion: tlsMinVersion}))
	}

	return opts
}

// redactURL hides credentials embedded in a server URL so it can be logged.
func redactURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if _, host, ok := strings.Cut(rest, "@"); ok {
		return scheme + "://[REDACTED]@" + host
	}
	return url
}
