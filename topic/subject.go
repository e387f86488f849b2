package topic

import (
	"fmt"
	"strings"
	"unicode"
)

// Wire tokens of the subject format.
const (
	delimiter      = '.'
	wildcardToken  = "*"
	remainderToken = ">"
)

// ToSubject encodes a topic as a broker subject.
//
// Exact levels are written verbatim, wildcards as "*", and each level is
// followed by ".". A remainder match then appends ">" after the final
// separator; otherwise the final separator is removed. A topic with no
// levels is only valid as a remainder match, which encodes to ">".
//
// Returns an error wrapping ErrMalformed when a token is empty, contains the
// delimiter or whitespace, or is a reserved wire token.
func ToSubject(t Topic) (string, error) {
	var b strings.Builder
	b.Grow(128)

	i := 0
	for lvl := range t.Levels() {
		if lvl.IsWildcard() {
			b.WriteString(wildcardToken)
		} else {
			if err := ValidateToken(lvl.token); err != nil {
				return "", fmt.Errorf("%w: level %d: %w", ErrMalformed, i, err)
			}
			b.WriteString(lvl.token)
		}
		b.WriteByte(delimiter)
		i++
	}

	if t.PrefixMatch() {
		b.WriteString(remainderToken)
		return b.String(), nil
	}
	if i == 0 {
		return "", fmt.Errorf("%w: %w", ErrMalformed, ErrEmptyTopic)
	}

	s := b.String()
	return s[:len(s)-1], nil
}

// FromSubject decodes a delivered subject into a topic.
//
// Segments equal to "*" become wildcards and all others exact levels. The
// result never reports a remainder match. FromSubject does not validate: it
// is the inverse of ToSubject for subjects ToSubject produced.
func FromSubject(subject string) Path {
	parts := strings.Split(subject, string(delimiter))
	levels := make([]Level, len(parts))
	for i, part := range parts {
		if part == wildcardToken {
			levels[i] = Wildcard
		} else {
			levels[i] = Exact(part)
		}
	}
	return Path{levels: levels}
}

// ParsePattern parses a subscription pattern such as "openfmb.*.>".
//
// Unlike FromSubject it understands a trailing ">" as a remainder match and
// validates every token.
func ParsePattern(pattern string) (Path, error) {
	if pattern == "" {
		return Path{}, fmt.Errorf("%w: %w", ErrMalformed, ErrEmptyTopic)
	}

	parts := strings.Split(pattern, string(delimiter))
	var p Path
	if parts[len(parts)-1] == remainderToken {
		p.prefix = true
		parts = parts[:len(parts)-1]
	}

	p.levels = make([]Level, 0, len(parts))
	for i, part := range parts {
		if part == wildcardToken {
			p.levels = append(p.levels, Wildcard)
			continue
		}
		if err := ValidateToken(part); err != nil {
			return Path{}, fmt.Errorf("%w: level %d: %w", ErrMalformed, i, err)
		}
		p.levels = append(p.levels, Exact(part))
	}
	return p, nil
}

// ValidateToken checks that an exact token can be written to a subject.
func ValidateToken(token string) error {
	switch {
	case token == "":
		return ErrEmptyToken
	case token == wildcardToken, token == remainderToken:
		return fmt.Errorf("%w: %q", ErrInvalidToken, token)
	case strings.IndexByte(token, delimiter) >= 0:
		return fmt.Errorf("%w: %q contains %q", ErrInvalidToken, token, delimiter)
	case strings.IndexFunc(token, unicode.IsSpace) >= 0:
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidToken, token)
	}
	return nil
}

// ValidatePublish checks that a topic names a single concrete subject.
func ValidatePublish(t Topic) error {
	if t.PrefixMatch() {
		return ErrNotPublishable
	}
	for lvl := range t.Levels() {
		if lvl.IsWildcard() {
			return ErrNotPublishable
		}
	}
	return nil
}

// PublishSubject validates t for publishing and encodes it.
func PublishSubject(t Topic) (string, error) {
	if err := ValidatePublish(t); err != nil {
		return "", err
	}
	return ToSubject(t)
}

// IsPattern reports whether a subject contains wildcard or remainder tokens.
func IsPattern(subject string) bool {
	for part := range strings.SplitSeq(subject, string(delimiter)) {
		if part == wildcardToken || part == remainderToken {
			return true
		}
	}
	return false
}
