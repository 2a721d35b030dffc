package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnknownDivision = errors.New("unknown division")
	ErrRateLimited     = errors.New("too many refresh requests")
)
