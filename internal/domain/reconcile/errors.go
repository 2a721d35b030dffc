package reconcile

import (
	"errors"

	"github.com/okian/hockeyplots/internal/domain/model"
)

var (
	// ErrUnknownTeam is returned when a feed team id has no reference row.
	ErrUnknownTeam = errors.New("unknown feed team")
	// ErrLedgerUnavailable wraps a failed ledger read at the start of a pass.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

// IsFatal reports whether err is a configuration or mapping error that no
// retry can fix.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnknownTeam) || errors.Is(err, model.ErrUnknownOutcome)
}
