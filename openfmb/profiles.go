package openfmb

import (
	"slices"
	"strings"
)

// Module is an OpenFMB module name as it appears in topics.
type Module string

// OpenFMB modules.
const (
	BreakerModule               Module = "breakermodule"
	CapBankModule               Module = "capbankmodule"
	CircuitSegmentServiceModule Module = "circuitsegmentservicemodule"
	ESSModule                   Module = "essmodule"
	GenerationModule            Module = "generationmodule"
	LoadModule                  Module = "loadmodule"
	MeterModule                 Module = "metermodule"
	RecloserModule              Module = "reclosermodule"
	RegulatorModule             Module = "regulatormodule"
	ResourceModule              Module = "resourcemodule"
	SolarModule                 Module = "solarmodule"
	SwitchModule                Module = "switchmodule"
)

// Profile is an OpenFMB profile (message type) name.
type Profile string

// OpenFMB profiles.
const (
	BreakerReadingProfile          Profile = "BreakerReadingProfile"
	BreakerStatusProfile           Profile = "BreakerStatusProfile"
	CapBankEventProfile            Profile = "CapBankEventProfile"
	CapBankReadingProfile          Profile = "CapBankReadingProfile"
	CapBankStatusProfile           Profile = "CapBankStatusProfile"
	CircuitSegmentControlProfile   Profile = "CircuitSegmentControlProfile"
	CircuitSegmentEventProfile     Profile = "CircuitSegmentEventProfile"
	ESSReadingProfile              Profile = "ESSReadingProfile"
	ESSStatusProfile               Profile = "ESSStatusProfile"
	GenerationReadingProfile       Profile = "GenerationReadingProfile"
	GenerationStatusProfile        Profile = "GenerationStatusProfile"
	LoadEventProfile               Profile = "LoadEventProfile"
	LoadReadingProfile             Profile = "LoadReadingProfile"
	MeterReadingProfile            Profile = "MeterReadingProfile"
	RecloserEventProfile           Profile = "RecloserEventProfile"
	RecloserReadingProfile         Profile = "RecloserReadingProfile"
	RecloserStatusProfile          Profile = "RecloserStatusProfile"
	RegulatorReadingProfile        Profile = "RegulatorReadingProfile"
	RegulatorStatusProfile         Profile = "RegulatorStatusProfile"
	ResourceDiscreteControlProfile Profile = "ResourceDiscreteControlProfile"
	ResourceEventProfile           Profile = "ResourceEventProfile"
	ResourceStatusProfile          Profile = "ResourceStatusProfile"
	SolarReadingProfile            Profile = "SolarReadingProfile"
	SolarStatusProfile             Profile = "SolarStatusProfile"
	SwitchReadingProfile           Profile = "SwitchReadingProfile"
)

// profileModules maps every supported profile to the module publishing it.
var profileModules = map[Profile]Module{
	BreakerReadingProfile:          BreakerModule,
	BreakerStatusProfile:           BreakerModule,
	CapBankEventProfile:            CapBankModule,
	CapBankReadingProfile:          CapBankModule,
	CapBankStatusProfile:           CapBankModule,
	CircuitSegmentControlProfile:   CircuitSegmentServiceModule,
	CircuitSegmentEventProfile:     CircuitSegmentServiceModule,
	ESSReadingProfile:              ESSModule,
	ESSStatusProfile:               ESSModule,
	GenerationReadingProfile:       GenerationModule,
	GenerationStatusProfile:        GenerationModule,
	LoadEventProfile:               LoadModule,
	LoadReadingProfile:             LoadModule,
	MeterReadingProfile:            MeterModule,
	RecloserEventProfile:           RecloserModule,
	RecloserReadingProfile:         RecloserModule,
	RecloserStatusProfile:          RecloserModule,
	RegulatorReadingProfile:        RegulatorModule,
	RegulatorStatusProfile:         RegulatorModule,
	ResourceDiscreteControlProfile: ResourceModule,
	ResourceEventProfile:           ResourceModule,
	ResourceStatusProfile:          ResourceModule,
	SolarReadingProfile:            SolarModule,
	SolarStatusProfile:             SolarModule,
	SwitchReadingProfile:           SwitchModule,
}

// Category groups profiles by the kind of message they carry.
type Category string

// Profile categories.
const (
	CategoryReading Category = "reading"
	CategoryStatus  Category = "status"
	CategoryEvent   Category = "event"
	CategoryControl Category = "control"
)

// Module returns the module that publishes p, and false for profiles
// outside the catalogue.
func (p Profile) Module() (Module, bool) {
	m, ok := profileModules[p]
	return m, ok
}

// Supported reports whether p is in the catalogue.
func (p Profile) Supported() bool {
	_, ok := profileModules[p]
	return ok
}

// Category derives the message category from the profile name.
// It returns "" for names that follow none of the conventions.
func (p Profile) Category() Category {
	name := strings.TrimSuffix(string(p), "Profile")
	switch {
	case strings.HasSuffix(name, "Reading"):
		return CategoryReading
	case strings.HasSuffix(name, "Status"):
		return CategoryStatus
	case strings.HasSuffix(name, "Event"):
		return CategoryEvent
	case strings.HasSuffix(name, "Control"):
		return CategoryControl
	default:
		return ""
	}
}

// Supported reports whether m is in the catalogue.
func (m Module) Supported() bool {
	for _, known := range profileModules {
		if known == m {
			return true
		}
	}
	return false
}

// Profiles returns the catalogued profiles of m in name order.
func (m Module) Profiles() []Profile {
	var out []Profile
	for p, owner := range profileModules {
		if owner == m {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// Profiles returns every catalogued profile in name order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profileModules))
	for p := range profileModules {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
