package types

import "errors"

// Providers wrap these so the read API can pick a status code without
// knowing their packages.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
