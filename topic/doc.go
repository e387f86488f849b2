// Package topic models hierarchical bus addresses and translates them to and
// from broker subject strings.
//
// A Topic is an ordered sequence of levels. Each level is either an exact
// token or a single-level wildcard, and the topic as a whole may ask to match
// any remaining levels after its last one (a remainder match).
//
// # Subject Format
//
// Subjects are the flat wire form used by the broker:
//
//	[Exact("a"), Exact("b")]              → "a.b"
//	[Exact("a"), Wildcard]                → "a.*"
//	[Exact("a")] with remainder match     → "a.>"
//
// Wildcards and remainder matches are subscribe-side concepts. Publishing to
// a topic that contains either is rejected by ValidatePublish.
//
// # Round Trip
//
// For every topic accepted by ToSubject, FromSubject(ToSubject(t)) yields the
// same levels as t. A parsed subject never reports a remainder match: a
// subject delivered by the broker is always a concrete leaf, never a pattern.
// Use ParsePattern to read a pattern written by a person (CLI, config).
//
// # Usage
//
//	t := topic.Exacts("openfmb", "switchmodule").Append(topic.Wildcard)
//	subject, err := topic.ToSubject(t) // "openfmb.switchmodule.*"
//
//	delivered := topic.FromSubject("openfmb.switchmodule.SwitchReadingProfile")
package topic
