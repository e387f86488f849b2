package openfmb

import (
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-bus/topic"
)

// Namespace is the first level of every OpenFMB topic.
//
// The full scheme is openfmb.{module}.{profile}.{mRID}.
const Namespace = "openfmb"

// profileTopicLevels is the level count of a profile topic.
const profileTopicLevels = 4

// ProfileTopic addresses one profile published by one device.
//
// A zero MRID matches every device. ProfileTopic never prefix-matches.
type ProfileTopic struct {
	Profile Profile
	MRID    uuid.UUID
}

var _ topic.Topic = ProfileTopic{}

// PrefixMatch implements topic.Topic.
func (ProfileTopic) PrefixMatch() bool { return false }

// Levels implements topic.Topic.
//
// An unsupported profile yields an empty module level, which the subject
// codec rejects.
func (pt ProfileTopic) Levels() iter.Seq[topic.Level] {
	return func(yield func(topic.Level) bool) {
		module, _ := pt.Profile.Module()
		if !yield(topic.Exact(Namespace)) ||
			!yield(topic.Exact(string(module))) ||
			!yield(topic.Exact(string(pt.Profile))) {
			return
		}
		if pt.MRID == uuid.Nil {
			yield(topic.Wildcard)
			return
		}
		yield(topic.Exact(pt.MRID.String()))
	}
}

// String renders the topic in subject form.
func (pt ProfileTopic) String() string {
	return topic.Collect(pt).String()
}

// Topics provides builders for OpenFMB topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := openfmb.Topics{}
//	t := topics.Profile(openfmb.MeterReadingProfile, meterID)
//	// Subject: "openfmb.metermodule.MeterReadingProfile.<meterID>"
type Topics struct{}

// =============================================================================
// Publish Topics
// =============================================================================

// Profile returns the topic a device publishes profile on.
//
// Example: openfmb.metermodule.MeterReadingProfile.8a3c...
func (Topics) Profile(profile Profile, mrid uuid.UUID) ProfileTopic {
	return ProfileTopic{Profile: profile, MRID: mrid}
}

// =============================================================================
// Subscribe Topics
// =============================================================================

// AllDevices returns the topic matching profile from every device.
//
// Example: openfmb.metermodule.MeterReadingProfile.*
func (Topics) AllDevices(profile Profile) ProfileTopic {
	return ProfileTopic{Profile: profile}
}

// Module returns the topic matching every profile of every device in a module.
//
// Example: openfmb.metermodule.>
func (Topics) Module(module Module) topic.Path {
	return topic.Exacts(Namespace, string(module)).WithPrefixMatch()
}

// Device returns the topic matching every profile published by one device.
//
// Example: openfmb.*.*.8a3c...
func (Topics) Device(mrid uuid.UUID) topic.Path {
	return topic.New(topic.Exact(Namespace), topic.Wildcard, topic.Wildcard, topic.Exact(mrid.String()))
}

// All returns the topic matching every OpenFMB message.
//
// Example: openfmb.>
func (Topics) All() topic.Path {
	return topic.Exacts(Namespace).WithPrefixMatch()
}

// ParseTopic recovers the profile and device from a delivered topic.
//
// A wildcard device level parses to the zero mRID. The module level must
// be the module that owns the profile.
func ParseTopic(t topic.Topic) (ProfileTopic, error) {
	p := topic.Collect(t)
	if p.PrefixMatch() || p.Len() != profileTopicLevels || p.At(0) != topic.Exact(Namespace) {
		return ProfileTopic{}, fmt.Errorf("%w: %s", ErrNotOpenFMB, p)
	}

	moduleLevel, profileLevel, mridLevel := p.At(1), p.At(2), p.At(3)

	module := Module(moduleLevel.Token())
	if moduleLevel.IsWildcard() || !module.Supported() {
		return ProfileTopic{}, fmt.Errorf("%w: %q", ErrUnsupportedModule, moduleLevel)
	}

	profile := Profile(profileLevel.Token())
	owner, ok := profile.Module()
	if profileLevel.IsWildcard() || !ok {
		return ProfileTopic{}, fmt.Errorf("%w: %q", ErrUnsupportedProfile, profileLevel)
	}
	if owner != module {
		return ProfileTopic{}, fmt.Errorf("%w: %s belongs to %s, not %s", ErrUnsupportedProfile, profile, owner, module)
	}

	pt := ProfileTopic{Profile: profile}
	if mridLevel.IsWildcard() {
		return pt, nil
	}
	id, err := uuid.Parse(mridLevel.Token())
	if err != nil {
		return ProfileTopic{}, fmt.Errorf("%w: %w", ErrInvalidMRID, err)
	}
	pt.MRID = id
	return pt, nil
}
