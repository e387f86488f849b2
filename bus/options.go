package bus

import "log/slog"

// Logger is the logging surface used by the bus.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder receives bus activity for metrics. See internal/metrics.
//
// err is nil on success. Implementations must be safe for concurrent use.
type Recorder interface {
	Published(encoding string, size int, err error)
	Delivered(encoding string, err error)
	SubscriptionOpened(encoding string)
	SubscriptionClosed(encoding string)
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	logger   Logger
	recorder Recorder
	ownsConn bool
}

func defaultOptions() options {
	return options{
		logger:   slog.New(slog.DiscardHandler),
		recorder: nopRecorder{},
	}
}

// WithLogger sets the logger for publish, subscribe and decode events.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithOwnedConn makes Close also close the connection. Without it the
// connection is left open for other buses sharing it.
func WithOwnedConn() Option {
	return func(o *options) {
		o.ownsConn = true
	}
}

type nopRecorder struct{}

func (nopRecorder) Published(string, int, error) {}
func (nopRecorder) Delivered(string, error)      {}
func (nopRecorder) SubscriptionOpened(string)    {}
func (nopRecorder) SubscriptionClosed(string)    {}
