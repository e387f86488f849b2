package topic

import "strings"

// Match reports whether a concrete subject is matched by a subscription
// subject.
//
// "*" matches exactly one level. A trailing ">" matches one or more
// remaining levels, so "a.>" matches "a.b" and "a.b.c" but not "a".
func Match(pattern, subject string) bool {
	pat := strings.Split(pattern, string(delimiter))
	sub := strings.Split(subject, string(delimiter))

	for i, p := range pat {
		if p == remainderToken && i == len(pat)-1 {
			return len(sub) > i
		}
		if i >= len(sub) {
			return false
		}
		if p != wildcardToken && p != sub[i] {
			return false
		}
	}
	return len(pat) == len(sub)
}
