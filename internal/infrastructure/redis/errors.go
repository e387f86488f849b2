package redis

import "errors"

// Domain-specific errors for Redis pub/sub operations.
var (
	// ErrConnectionFailed is returned when the server does not answer PING.
	ErrConnectionFailed = errors.New("redis: connection failed")

	// ErrConnClosed is returned by operations on a closed connection.
	ErrConnClosed = errors.New("redis: connection closed")

	// ErrInvalidSubject is returned when publishing to an empty or wildcard subject.
	ErrInvalidSubject = errors.New("redis: invalid subject")

	// ErrPublishFailed is returned when PUBLISH fails.
	ErrPublishFailed = errors.New("redis: publish failed")

	// ErrSubscribeFailed is returned when SUBSCRIBE or PSUBSCRIBE is not confirmed.
	ErrSubscribeFailed = errors.New("redis: subscribe failed")
)
