package openfmb

import "errors"

// Errors returned when a topic or message does not fit the OpenFMB scheme.
var (
	// ErrNotOpenFMB is returned for topics outside the openfmb namespace or
	// with the wrong number of levels.
	ErrNotOpenFMB = errors.New("openfmb: not an openfmb profile topic")

	// ErrUnsupportedModule is returned for module names outside the catalogue.
	ErrUnsupportedModule = errors.New("openfmb: unsupported module")

	// ErrUnsupportedProfile is returned for profile names outside the
	// catalogue, for profiles published under the wrong module, and for
	// profiles with no registered message type.
	ErrUnsupportedProfile = errors.New("openfmb: unsupported profile")

	// ErrInvalidMRID is returned when the device level is not a UUID.
	ErrInvalidMRID = errors.New("openfmb: invalid mRID")
)
