// Package feedsim serves a deterministic synthetic season in the schedule
// API's shape, for local runs and end-to-end tests.
package feedsim

import (
	"time"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// Config describes the generated season.
type Config struct {
	Seed   uint64
	Season string // e.g. 20232024
	Teams  []model.Team
	// Rounds is the number of regular season rounds; every team plays once
	// per round.
	Rounds int
	// Played is how many rounds already have results.
	Played int
	// PreseasonRounds are generated before opening night, all final.
	PreseasonRounds int
	Opening         time.Time
}

// Default configuration constants.
const (
	DefaultRounds          = 82
	DefaultPreseasonRounds = 2
)

func (c *Config) normalize() {
	if c.Season == "" {
		c.Season = "20232024"
	}
	if c.Rounds <= 0 {
		c.Rounds = DefaultRounds
	}
	if c.Played < 0 {
		c.Played = 0
	}
	if c.Played > c.Rounds {
		c.Played = c.Rounds
	}
	if c.PreseasonRounds < 0 {
		c.PreseasonRounds = 0
	}
	if c.Opening.IsZero() {
		c.Opening = time.Date(2023, 10, 10, 23, 0, 0, 0, time.UTC)
	}
}
