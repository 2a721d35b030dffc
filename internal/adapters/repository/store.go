// Package repository defines the game ledger interface and its backends.
package repository

import (
	"context"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// Store is the persisted game ledger. Games and scores are append-only: the
// only update is attaching a score to a game that has none.
type Store interface {
	// SyncReference writes the team and outcome definition tables.
	SyncReference(ctx context.Context, teams []model.Team, outcomeTypes []model.OutcomeType) error

	OutcomeTypes(ctx context.Context) ([]model.OutcomeType, error)
	// Games returns every game ordered by start time, then external id.
	Games(ctx context.Context) ([]model.GameRecord, error)
	Scores(ctx context.Context) ([]model.ScoreRecord, error)
	// GamesForTeam returns the team's games, home or away, in Games order.
	GamesForTeam(ctx context.Context, team model.TeamID) ([]model.GameRecord, error)
	// KnownGames maps every stored external id to whether it has a score.
	KnownGames(ctx context.Context) (map[model.GameID]bool, error)

	// InsertScore stores s and returns its generated id.
	InsertScore(ctx context.Context, s model.ScoreRecord) (model.ScoreID, error)
	// InsertGame stores g. Returns ErrDuplicateGame if the external id exists.
	InsertGame(ctx context.Context, g model.GameRecord) error
	// AttachScore sets the score of an unscored game. Returns ErrAlreadyScored
	// if the game has one.
	AttachScore(ctx context.Context, game model.GameID, score model.ScoreID) error

	Close() error
}

// ScoredGameWriter is implemented by ledgers that can write a score and the
// game referencing it as one unit.
type ScoredGameWriter interface {
	InsertScoredGame(ctx context.Context, g model.GameRecord, s model.ScoreRecord) (model.ScoreID, error)
	AttachNewScore(ctx context.Context, game model.GameID, s model.ScoreRecord) (model.ScoreID, error)
}

var (
	_ Store            = (*MemoryStore)(nil)
	_ ScoredGameWriter = (*MemoryStore)(nil)
	_ Store            = (*PostgresStore)(nil)
	_ ScoredGameWriter = (*PostgresStore)(nil)
)
