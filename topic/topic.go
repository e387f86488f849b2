package topic

import (
	"iter"
	"slices"
	"strings"
)

// Kind distinguishes exact levels from wildcard levels.
type Kind uint8

const (
	// KindExact is a literal token level.
	KindExact Kind = iota
	// KindWildcard matches exactly one arbitrary level.
	KindWildcard
)

// Level is one segment of a topic. The zero value is Exact("").
//
// Levels are immutable and comparable with ==.
type Level struct {
	kind  Kind
	token string
}

// Wildcard matches exactly one level.
var Wildcard = Level{kind: KindWildcard}

// Exact returns a level matching only the given token.
func Exact(token string) Level {
	return Level{kind: KindExact, token: token}
}

// Kind reports whether the level is exact or a wildcard.
func (l Level) Kind() Kind { return l.kind }

// IsWildcard reports whether the level is a single-level wildcard.
func (l Level) IsWildcard() bool { return l.kind == KindWildcard }

// Token returns the literal token of an exact level, or "" for a wildcard.
func (l Level) Token() string { return l.token }

// String renders the level in subject form.
func (l Level) String() string {
	if l.kind == KindWildcard {
		return wildcardToken
	}
	return l.token
}

// Topic is anything that can enumerate its levels and say whether it also
// matches any trailing levels.
//
// Levels must return a finite sequence and may be called more than once;
// each call starts from the first level.
type Topic interface {
	PrefixMatch() bool
	Levels() iter.Seq[Level]
}

// Path is the stored form of a Topic.
type Path struct {
	levels []Level
	prefix bool
}

var _ Topic = Path{}

// New builds a Path from levels. The slice is copied.
func New(levels ...Level) Path {
	return Path{levels: slices.Clone(levels)}
}

// Exacts builds a Path of exact levels from tokens.
func Exacts(tokens ...string) Path {
	levels := make([]Level, len(tokens))
	for i, tok := range tokens {
		levels[i] = Exact(tok)
	}
	return Path{levels: levels}
}

// PrefixMatch implements Topic.
func (p Path) PrefixMatch() bool { return p.prefix }

// Levels implements Topic.
func (p Path) Levels() iter.Seq[Level] {
	return slices.Values(p.levels)
}

// Len returns the number of levels.
func (p Path) Len() int { return len(p.levels) }

// At returns the level at index i.
func (p Path) At(i int) Level { return p.levels[i] }

// Append returns a new Path with levels added at the end.
func (p Path) Append(levels ...Level) Path {
	return Path{levels: append(slices.Clone(p.levels), levels...), prefix: p.prefix}
}

// WithPrefixMatch returns a copy of p that also matches any remaining levels.
func (p Path) WithPrefixMatch() Path {
	return Path{levels: p.levels, prefix: true}
}

// Equal reports whether both paths have the same levels and prefix flag.
func (p Path) Equal(other Path) bool {
	return p.prefix == other.prefix && slices.Equal(p.levels, other.levels)
}

// String renders the path in subject form without validating it.
func (p Path) String() string {
	var b strings.Builder
	for i, l := range p.levels {
		if i > 0 {
			b.WriteByte(delimiter)
		}
		b.WriteString(l.String())
	}
	if p.prefix {
		if len(p.levels) > 0 {
			b.WriteByte(delimiter)
		}
		b.WriteString(remainderToken)
	}
	return b.String()
}

// Collect copies the levels of any Topic into a Path.
func Collect(t Topic) Path {
	if p, ok := t.(Path); ok {
		return p
	}
	return Path{levels: slices.Collect(t.Levels()), prefix: t.PrefixMatch()}
}
