package service

import (
	"errors"
	"fmt"

	"github.com/okian/hockeyplots/internal/domain/types"
)

var (
	// ErrNotStarted is returned by operations that need a running service.
	ErrNotStarted = fmt.Errorf("service not started: %w", types.ErrUnavailable)
	// ErrNoFetcher is returned by Start when no schedule fetcher is configured.
	ErrNoFetcher = errors.New("no schedule fetcher configured")
	// ErrUnknownTeam is returned by TeamSeries for an unknown abbreviation.
	ErrUnknownTeam = fmt.Errorf("unknown team: %w", types.ErrNotFound)
)
