package bus

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"sync"

	"github.com/nerrad567/gray-logic-bus/encoding"
	"github.com/nerrad567/gray-logic-bus/topic"
)

// Subscription is the live sequence of messages for one Subscribe call.
//
// States: registered, delivering, closed. Once closed, Next always returns
// ErrClosed. A Subscription is not restartable; subscribe again to resume.
type Subscription[M any] struct {
	subject  string
	raw      RawSubscription
	enc      encoding.Encoding[M]
	logger   Logger
	recorder Recorder

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	cleanup   runtime.Cleanup
}

// releaseArgs is what the runtime cleanup needs to unregister an abandoned
// subscription. It must not reference the Subscription itself.
type releaseArgs struct {
	raw      RawSubscription
	recorder Recorder
	encoding string
}

func release(a releaseArgs) {
	_ = a.raw.Unsubscribe()
	a.recorder.SubscriptionClosed(a.encoding)
}

func newSubscription[M any](subject string, raw RawSubscription, enc encoding.Encoding[M], o options) *Subscription[M] {
	s := &Subscription[M]{
		subject:  subject,
		raw:      raw,
		enc:      enc,
		logger:   o.logger,
		recorder: o.recorder,
		done:     make(chan struct{}),
	}
	o.recorder.SubscriptionOpened(enc.Name())

	// A subscription dropped without Close still unregisters from the broker
	// once it is garbage collected.
	s.cleanup = runtime.AddCleanup(s, release, releaseArgs{
		raw:      raw,
		recorder: o.recorder,
		encoding: enc.Name(),
	})
	return s
}

// Subject returns the broker subject the subscription was registered for.
func (s *Subscription[M]) Subject() string {
	return s.subject
}

// Done is closed when the subscription reaches the closed state.
func (s *Subscription[M]) Done() <-chan struct{} {
	return s.done
}

// Next blocks until the next delivery and returns it decoded.
//
// Returns:
//   - M, nil: a decoded message
//   - *DecodeError: the payload at this position could not be decoded; the
//     subscription stays usable
//   - ErrClosed: end of sequence (closed by the caller or the connection)
//   - ctx.Err(): ctx ended first; the subscription stays usable
//   - ErrBroker: a transient broker error; the subscription stays usable
func (s *Subscription[M]) Next(ctx context.Context) (M, error) {
	var zero M
	if s.isClosed() {
		return zero, ErrClosed
	}

	d, err := s.raw.Next(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrClosed):
			s.shutdown()
			return zero, ErrClosed
		case s.isClosed():
			return zero, ErrClosed
		case ctx.Err() != nil:
			return zero, ctx.Err()
		default:
			return zero, fmt.Errorf("%w: %w", ErrBroker, err)
		}
	}

	// A delivery that raced with Close is dropped.
	if s.isClosed() {
		return zero, ErrClosed
	}

	msg, err := s.enc.Decode(topic.FromSubject(d.Subject), d.Payload)
	if err != nil {
		decodeErr := &DecodeError{
			Subject:  d.Subject,
			Encoding: s.enc.Name(),
			Err:      err,
		}
		s.recorder.Delivered(s.enc.Name(), decodeErr)
		s.logger.Warn("bus payload could not be decoded",
			"subject", d.Subject,
			"subscription", s.subject,
			"encoding", s.enc.Name(),
			"error", err,
		)
		return zero, decodeErr
	}

	s.recorder.Delivered(s.enc.Name(), nil)
	return msg, nil
}

// All returns the subscription as a range-over-func sequence.
//
// Iteration ends when the subscription closes or when ctx ends (after
// yielding the context error). Decode failures are yielded and iteration
// continues. Breaking out of the loop does not close the subscription.
func (s *Subscription[M]) All(ctx context.Context) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		for {
			msg, err := s.Next(ctx)
			if errors.Is(err, ErrClosed) {
				return
			}
			if !yield(msg, err) {
				return
			}
			if err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

// Close unregisters the subscription at the broker. Deliveries not yet
// consumed, and any arriving later, are discarded. Safe to call more than
// once and from any goroutine.
func (s *Subscription[M]) Close() error {
	s.shutdown()
	return s.closeErr
}

func (s *Subscription[M]) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cleanup.Stop()
		s.closeErr = s.raw.Unsubscribe()
		s.recorder.SubscriptionClosed(s.enc.Name())
		s.logger.Debug("bus subscription closed", "subject", s.subject)
	})
}

func (s *Subscription[M]) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
