package queue

import "errors"

// ErrClosed reports an operation on a closed handoff.
var ErrClosed = errors.New("handoff closed")
