package model

import "errors"

var (
	// ErrUnknownOutcome is returned for an outcome outside the closed set.
	ErrUnknownOutcome = errors.New("unknown outcome")
	// ErrMissingScore is returned for a final game without both tallies.
	ErrMissingScore = errors.New("final game without score")
)
