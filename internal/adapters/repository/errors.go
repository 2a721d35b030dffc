package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrDuplicateGame      = errors.New("game already recorded")
	ErrGameNotFound       = errors.New("game not found")
	ErrAlreadyScored      = errors.New("game already has a score")
	ErrUnknownScore       = errors.New("score not found")
	ErrUnknownTeam        = errors.New("team not in ledger")
	ErrSelfMatch          = errors.New("home and away team are the same")
	ErrUnknownOutcomeType = errors.New("outcome type not in ledger")
	ErrClosed             = errors.New("ledger closed")
)
