package service

import (
	"time"

	"github.com/okian/hockeyplots/internal/adapters/mq/worker"
	"github.com/okian/hockeyplots/internal/adapters/repository"
	"github.com/okian/hockeyplots/internal/domain/points"
	"github.com/okian/hockeyplots/internal/domain/reference"
	"github.com/okian/hockeyplots/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLedger sets the game ledger. The service closes it on Stop.
func WithLedger(l repository.Store) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithReference sets the team reference table.
func WithReference(r *reference.Store) Option {
	return func(s *Service) {
		if r != nil {
			s.ref = r
		}
	}
}

// WithFetcher sets the season fetcher used by refreshes.
func WithFetcher(f worker.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithSeason sets the season key passed to the feed.
func WithSeason(season string) Option {
	return func(s *Service) {
		if season != "" {
			s.season = season
		}
	}
}

// WithFrameInterval sets how often the loop polls the handoff.
func WithFrameInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

// WithFetchTimeout bounds each background fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithHandoffCapacity sets how many fetched batches may wait for the loop.
func WithHandoffCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.handoffCapacity = n
		}
	}
}

// WithBaseline sets the expected points per game.
func WithBaseline(b float64) Option {
	return func(s *Service) {
		s.baseline = b
	}
}

// WithIndexPolicy selects how series indices advance.
func WithIndexPolicy(p points.IndexPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithDeriveFrom selects the series source after each pass.
func WithDeriveFrom(src Source) Option {
	return func(s *Service) {
		if src != "" {
			s.deriveFrom = src
		}
	}
}

// WithScoreBackfill lets known unscored games take their final score.
func WithScoreBackfill(enabled bool) Option {
	return func(s *Service) {
		s.backfill = enabled
	}
}

// WithRefreshSchedule triggers refreshes on a cron schedule.
func WithRefreshSchedule(spec string) Option {
	return func(s *Service) {
		s.refreshSchedule = spec
	}
}

// WithRefreshOnStart triggers one refresh when the service starts.
func WithRefreshOnStart(enabled bool) Option {
	return func(s *Service) {
		s.refreshOnStart = enabled
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
