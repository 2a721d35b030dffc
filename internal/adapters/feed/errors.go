package feed

import "errors"

var (
	// ErrStatus is returned when the feed answers with a non-200 status.
	ErrStatus = errors.New("unexpected feed status")
	// ErrDecode is returned when a schedule body is not valid JSON.
	ErrDecode = errors.New("decode schedule")
	// ErrNoTeams is returned when a season fetch names no teams.
	ErrNoTeams = errors.New("no teams to fetch")
)
