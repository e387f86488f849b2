package mqtt

import (
	"fmt"
	"strings"
)

// MQTT topic syntax.
const (
	levelSeparator = "/"
	singleLevel    = "+"
	multiLevel     = "#"
)

// Bus subject syntax.
const (
	subjectSeparator = "."
	subjectWildcard  = "*"
	subjectRemainder = ">"
)

// ToTopic converts a concrete bus subject to an MQTT topic name.
//
//	"openfmb.metermodule.MeterReadingProfile" -> "openfmb/metermodule/MeterReadingProfile"
//
// Returns ErrUnsupportedSubject for wildcards or tokens using MQTT syntax.
func ToTopic(subject string) (string, error) {
	levels, err := splitSubject(subject)
	if err != nil {
		return "", err
	}
	for _, lvl := range levels {
		if lvl == subjectWildcard || lvl == subjectRemainder {
			return "", fmt.Errorf("%w: %q is a pattern", ErrUnsupportedSubject, subject)
		}
	}
	return strings.Join(levels, levelSeparator), nil
}

// ToFilter converts a bus subject or pattern to an MQTT topic filter.
//
//	"openfmb.*.MeterReadingProfile" -> "openfmb/+/MeterReadingProfile"
//	"openfmb.>"                     -> "openfmb/#"
//
// MQTT's "#" also matches its parent level ("openfmb/#" matches
// "openfmb"); Conn filters such deliveries out.
func ToFilter(subject string) (string, error) {
	levels, err := splitSubject(subject)
	if err != nil {
		return "", err
	}
	for i, lvl := range levels {
		switch lvl {
		case subjectWildcard:
			levels[i] = singleLevel
		case subjectRemainder:
			if i != len(levels)-1 {
				return "", fmt.Errorf("%w: %q has %q before the last level", ErrUnsupportedSubject, subject, subjectRemainder)
			}
			levels[i] = multiLevel
		}
	}
	return strings.Join(levels, levelSeparator), nil
}

// FromTopic converts an MQTT topic name to a bus subject.
//
// It is the inverse of ToTopic. Topics published by other MQTT clients
// whose levels contain "." do not round-trip.
func FromTopic(topic string) string {
	return strings.ReplaceAll(topic, levelSeparator, subjectSeparator)
}

func splitSubject(subject string) ([]string, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrUnsupportedSubject)
	}
	levels := strings.Split(subject, subjectSeparator)
	for _, lvl := range levels {
		if strings.ContainsAny(lvl, levelSeparator+singleLevel+multiLevel) {
			return nil, fmt.Errorf("%w: level %q uses MQTT topic syntax", ErrUnsupportedSubject, lvl)
		}
	}
	return levels, nil
}
