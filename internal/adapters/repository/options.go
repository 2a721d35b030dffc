package repository

import (
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/logger"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithSeedGames preloads games and their scores, keeping the given score ids.
func WithSeedGames(games []model.GameRecord, scores []model.ScoreRecord) MemoryOption {
	return func(s *MemoryStore) {
		for _, sc := range scores {
			s.scores[sc.ID] = sc
			if sc.ID >= s.nextScore {
				s.nextScore = sc.ID + 1
			}
		}
		for _, g := range games {
			s.games[g.ExternalID] = cloneGame(g)
			if g.ScoreID != nil {
				s.scoreRefs[*g.ScoreID] = g.ExternalID
			}
		}
	}
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresLogger sets a custom logger for the store.
func WithPostgresLogger(l logger.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMigrations controls whether Open applies the embedded schema.
func WithMigrations(enabled bool) PostgresOption {
	return func(s *PostgresStore) {
		s.migrate = enabled
	}
}
