package contracts

import "errors"

var (
	// ErrUnknownRegion is returned when a region code is not in the
	// supported region table.
	ErrUnknownRegion = errors.New("unknown region code")

	// ErrRegionNotFound is returned by the wealth store when no row
	// exists for a known region.
	ErrRegionNotFound = errors.New("region not found in wealth store")

	// ErrMissingPrerequisite is returned when a stage is run without the
	// outputs of the stage before it.
	ErrMissingPrerequisite = errors.New("missing prerequisite stage output")

	// ErrStorageUnavailable wraps persistence failures so that callers
	// can distinguish storage trouble from domain errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
