package reference

import "errors"

var (
	// ErrUnknownDivision is returned when a team names a division outside the closed set.
	ErrUnknownDivision = errors.New("unknown division")
	// ErrUnknownOutcomeType is returned when an outcome name has no definition row.
	ErrUnknownOutcomeType = errors.New("unknown outcome type")
	// ErrInvalidReference is returned for malformed or inconsistent reference rows.
	ErrInvalidReference = errors.New("invalid reference data")
)
