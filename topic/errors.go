package topic

import "errors"

// Errors returned when a topic cannot be turned into a subject.
// Every structural error also matches ErrMalformed.
var (
	// ErrMalformed is the umbrella error for any structural topic violation.
	ErrMalformed = errors.New("topic: malformed topic")

	// ErrEmptyTopic is returned for a topic with no levels.
	ErrEmptyTopic = errors.New("topic: topic has no levels")

	// ErrEmptyToken is returned for an exact level with an empty token.
	// An empty token would produce an ambiguous empty subject segment.
	ErrEmptyToken = errors.New("topic: empty level token")

	// ErrInvalidToken is returned when an exact token contains the level
	// delimiter or whitespace, or is one of the reserved wire tokens "*" and ">".
	ErrInvalidToken = errors.New("topic: level token contains a reserved character")

	// ErrNotPublishable is returned by ValidatePublish for topics containing
	// wildcards or a remainder match.
	ErrNotPublishable = errors.New("topic: wildcards and remainder matches are subscribe-only")
)
