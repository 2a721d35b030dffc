package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeedSide is one team's block in a scheduled game.
type FeedSide struct {
	ID     FeedTeamID `json:"id"`
	Abbrev string     `json:"abbrev,omitempty"`
	Score  *int       `json:"score,omitempty"`
}

// FeedOutcome is present once a game has been decided.
type FeedOutcome struct {
	LastPeriodType string `json:"lastPeriodType"`
}

// ScheduledGame is a game as published in a team's season schedule.
type ScheduledGame struct {
	ID           GameID       `json:"id"`
	GameType     int          `json:"gameType"`
	GameState    string       `json:"gameState,omitempty"`
	StartTimeUTC time.Time    `json:"startTimeUTC"`
	HomeTeam     FeedSide     `json:"homeTeam"`
	AwayTeam     FeedSide     `json:"awayTeam"`
	GameOutcome  *FeedOutcome `json:"gameOutcome,omitempty"`
}

// Category returns the game's classification.
func (g ScheduledGame) Category() Category { return CategoryFromGameType(g.GameType) }

// Final reports whether the feed has published an outcome.
func (g ScheduledGame) Final() bool { return g.GameOutcome != nil }

// Tallies returns home and away scores of a final game.
func (g ScheduledGame) Tallies() (home, away int, err error) {
	if g.HomeTeam.Score == nil || g.AwayTeam.Score == nil {
		return 0, 0, fmt.Errorf("%w: game %d", ErrMissingScore, g.ID)
	}
	return *g.HomeTeam.Score, *g.AwayTeam.Score, nil
}

// Matchup converts the game into the feed namespace.
func (g ScheduledGame) Matchup() (Matchup, error) {
	m := Matchup{GameID: g.ID, Home: int64(g.HomeTeam.ID), Away: int64(g.AwayTeam.ID)}
	if !g.Final() {
		return m, nil
	}
	home, away, err := g.Tallies()
	if err != nil {
		return m, err
	}
	out, err := ParseOutcomeCode(g.GameOutcome.LastPeriodType)
	if err != nil {
		return m, fmt.Errorf("game %d: %w", g.ID, err)
	}
	m.Final = &FinalScore{Home: home, Away: away, Outcome: out}
	return m, nil
}

// Schedule is one team's season schedule response.
type Schedule struct {
	Games []ScheduledGame `json:"games"`
}

// Batch is one complete fetch of every team's schedule.
type Batch struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	FetchedAt time.Time
	Season    string
	// Order lists the teams in fetch order so passes are deterministic.
	Order     []FeedTeamID
	Schedules map[FeedTeamID]Schedule
}

// Games flattens the batch in team order, duplicates included.
func (b *Batch) Games() []ScheduledGame {
	var out []ScheduledGame
	for _, id := range b.Order {
		out = append(out, b.Schedules[id].Games...)
	}
	return out
}

// Size returns the number of game entries across all schedules.
func (b *Batch) Size() int {
	n := 0
	for _, s := range b.Schedules {
		n += len(s.Games)
	}
	return n
}
