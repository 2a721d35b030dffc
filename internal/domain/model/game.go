package model

import "time"

// GameID is the feed-assigned external game identifier. It is the dedup key.
type GameID int64

// ScoreID is the ledger-generated score reference.
type ScoreID int64

// Category classifies a game by the feed's gameType.
type Category int

const (
	CategoryOther Category = iota
	CategoryPreseason
	CategoryRegularSeason
)

// CategoryFromGameType maps the feed's numeric game type.
func CategoryFromGameType(gameType int) Category {
	switch gameType {
	case 1:
		return CategoryPreseason
	case 2:
		return CategoryRegularSeason
	default:
		return CategoryOther
	}
}

func (c Category) String() string {
	switch c {
	case CategoryPreseason:
		return "preseason"
	case CategoryRegularSeason:
		return "regular"
	default:
		return "other"
	}
}

// ScoreRecord is a persisted final score. Never amended.
type ScoreRecord struct {
	ID            ScoreID
	Home          int
	Away          int
	OutcomeTypeID OutcomeTypeID
}

// GameRecord is a persisted regular-season game.
type GameRecord struct {
	ExternalID GameID
	Home       TeamID
	Away       TeamID
	ScoreID    *ScoreID
	StartTime  time.Time
}

// Scored reports whether the game has its final score.
func (g GameRecord) Scored() bool { return g.ScoreID != nil }

// FinalScore is a completed game's tallies and deciding period.
type FinalScore struct {
	Home    int
	Away    int
	Outcome Outcome
}

// Matchup is one game as seen by the points deriver. Home and Away hold
// team references in whichever namespace the caller populated them from.
type Matchup struct {
	GameID GameID
	Home   int64
	Away   int64
	Final  *FinalScore
}
