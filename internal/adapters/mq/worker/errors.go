package worker

import "errors"

// ErrStopped is returned by Trigger after Shutdown.
var ErrStopped = errors.New("worker stopped")
