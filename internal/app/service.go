// Package service runs the foreground loop: it drains fetched batches,
// reconciles them into the ledger and publishes the derived series.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hockeyplots/internal/adapters/mq/queue"
	"github.com/okian/hockeyplots/internal/adapters/mq/worker"
	"github.com/okian/hockeyplots/internal/adapters/repository"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/points"
	"github.com/okian/hockeyplots/internal/domain/reconcile"
	"github.com/okian/hockeyplots/internal/domain/reference"
	"github.com/okian/hockeyplots/internal/domain/types"
	"github.com/okian/hockeyplots/pkg/logger"
	"github.com/okian/hockeyplots/pkg/metrics"
)

// Source selects what series are derived from after a pass.
type Source string

const (
	// SourceLedger re-reads the ledger after every pass.
	SourceLedger Source = "ledger"
	// SourceFetch derives directly from the fetched batch.
	SourceFetch Source = "fetch"
)

const shutdownTimeout = 10 * time.Second

// snapshot is an immutable set of rendered series.
type snapshot struct {
	builtAt  time.Time
	source   Source
	batchID  uuid.UUID
	series   []types.Series
	byAbbrev map[string]int
}

// Service implements the API dependencies for the series viewer.
type Service struct {
	mu sync.RWMutex

	// Core components
	ledger     repository.Store
	ref        *reference.Store
	fetcher    worker.Fetcher
	reconciler *reconcile.Reconciler
	deriver    *points.Deriver
	handoff    *queue.InMemoryQueue
	fetches    *worker.FetchWorker
	scheduler  *worker.Scheduler

	// Configuration
	season          string
	frameInterval   time.Duration
	fetchTimeout    time.Duration
	handoffCapacity int
	baseline        float64
	policy          points.IndexPolicy
	deriveFrom      Source
	backfill        bool
	refreshSchedule string
	refreshOnStart  bool

	// State
	started    bool
	stopCh     chan struct{}
	polls      sync.WaitGroup
	current    atomic.Pointer[snapshot]
	lastReport atomic.Pointer[reconcile.Report]
	passes     atomic.Int64
	dropped    atomic.Int64

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		season:          "20232024",
		frameInterval:   100 * time.Millisecond,
		fetchTimeout:    2 * time.Minute,
		handoffCapacity: 4,
		baseline:        points.DefaultBaseline,
		policy:          points.IndexCompact,
		deriveFrom:      SourceLedger,
		backfill:        true,
		stopCh:          make(chan struct{}),
		logger:          nil, // set on Start
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline and publishes the initial series from the
// ledger. Mapping or derivation errors abort startup.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.fetcher == nil {
		return ErrNoFetcher
	}

	if s.ref == nil {
		ref, err := reference.Default()
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		s.ref = ref
	}
	if s.ledger == nil {
		s.ledger = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory ledger")
	}
	if err := s.ledger.SyncReference(ctx, s.ref.Teams(), s.ref.OutcomeTypes()); err != nil {
		return fmt.Errorf("sync reference data: %w", err)
	}

	rec, err := reconcile.New(s.ledger, s.ref,
		reconcile.WithScoreBackfill(s.backfill),
		reconcile.WithLogger(s.logger.Named("reconciler")))
	if err != nil {
		return err
	}
	s.reconciler = rec
	s.deriver = points.NewDeriver(points.WithBaseline(s.baseline), points.WithIndexPolicy(s.policy))

	snap, err := s.fromLedger(ctx)
	if err != nil {
		return fmt.Errorf("initial series: %w", err)
	}
	s.current.Store(snap)

	s.handoff = queue.NewInMemoryQueue(queue.WithCapacity(s.handoffCapacity))
	s.fetches = worker.NewFetchWorker(s.fetcher, s.handoff, s.ref.Teams(), s.season,
		worker.WithFetchTimeout(s.fetchTimeout))

	if s.refreshSchedule != "" {
		sch, err := worker.NewScheduler(s.refreshSchedule, s.fetches)
		if err != nil {
			return err
		}
		s.scheduler = sch
		s.scheduler.Start()
	}

	s.started = true
	s.logger.Info(ctx, "series service started",
		logger.String("season", s.season),
		logger.String("derive_from", string(s.deriveFrom)),
		logger.Float64("baseline", s.baseline),
		logger.Int("teams", len(s.ref.Teams())),
	)

	if s.refreshOnStart {
		if _, err := s.fetches.Trigger(false); err != nil {
			s.logger.Warn(ctx, "initial refresh not started", logger.Error(err))
		}
	}
	return nil
}

// Run polls the handoff every frame until ctx is done or Stop is called.
// It returns the first fatal pass error.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if _, err := s.Poll(ctx); err != nil {
				if errors.Is(err, ErrNotStarted) {
					return nil
				}
				return err
			}
		}
	}
}

// Poll handles at most one waiting batch: reconcile fully, then rebuild the
// series. It reports whether a batch was taken. Only fatal errors are
// returned; anything else drops the batch with a log line.
func (s *Service) Poll(ctx context.Context) (bool, error) {
	s.mu.RLock()
	started := s.started
	if started {
		s.polls.Add(1)
	}
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}
	defer s.polls.Done()

	b, ok := s.handoff.TryDequeue()
	if !ok {
		return false, nil
	}

	rep, err := s.reconciler.Reconcile(ctx, b)
	if err != nil {
		if reconcile.IsFatal(err) {
			metrics.RecordErrorByComponent("service", "fatal")
			return true, fmt.Errorf("reconcile batch %s: %w", b.ID, err)
		}
		s.dropped.Add(1)
		metrics.RecordBatchDropped("ledger_unavailable")
		s.logger.Error(ctx, "reconciliation failed, dropping batch",
			logger.String("batch_id", b.ID.String()), logger.Error(err))
		return true, nil
	}
	s.passes.Add(1)
	s.lastReport.Store(&rep)

	var snap *snapshot
	if s.deriveFrom == SourceFetch {
		snap, err = s.fromBatch(b)
	} else {
		snap, err = s.fromLedger(ctx)
	}
	if err != nil {
		if errors.Is(err, model.ErrUnknownOutcome) || errors.Is(err, points.ErrNotParticipant) {
			return true, fmt.Errorf("rebuild series: %w", err)
		}
		s.logger.Error(ctx, "series rebuild failed, keeping previous", logger.Error(err))
		return true, nil
	}
	snap.batchID = b.ID
	s.current.Store(snap)
	return true, nil
}

func (s *Service) fromLedger(ctx context.Context) (*snapshot, error) {
	start := time.Now()
	view, err := repository.LoadView(ctx, s.ledger)
	if err != nil {
		return nil, err
	}
	metrics.UpdateLedgerSize(view.Games(), view.Pending())

	teams := s.ref.Teams()
	series := make([]points.Series, 0, len(teams))
	for _, t := range teams {
		ps, err := s.deriver.Derive(t, model.NamespaceInternal, view.Matchups(t.ID))
		if err != nil {
			return nil, err
		}
		series = append(series, ps)
	}
	metrics.RecordSeriesBuild(time.Since(start))
	return newSnapshot(SourceLedger, series), nil
}

// fromBatch derives each team's series from its own fetched schedule,
// regular season only. A final game missing a tally counts as unplayed.
func (s *Service) fromBatch(b *model.Batch) (*snapshot, error) {
	start := time.Now()
	teams := s.ref.Teams()
	series := make([]points.Series, 0, len(teams))
	for _, t := range teams {
		var games []model.Matchup
		for _, g := range b.Schedules[t.FeedID].Games {
			if g.Category() != model.CategoryRegularSeason {
				continue
			}
			m, err := g.Matchup()
			if err != nil && !errors.Is(err, model.ErrMissingScore) {
				return nil, err
			}
			games = append(games, m)
		}
		ps, err := s.deriver.Derive(t, model.NamespaceFeed, games)
		if err != nil {
			return nil, err
		}
		series = append(series, ps)
	}
	metrics.RecordSeriesBuild(time.Since(start))
	return newSnapshot(SourceFetch, series), nil
}

func newSnapshot(src Source, series []points.Series) *snapshot {
	snap := &snapshot{
		builtAt:  time.Now().UTC(),
		source:   src,
		series:   make([]types.Series, len(series)),
		byAbbrev: make(map[string]int, len(series)),
	}
	for i, ps := range series {
		snap.series[i] = types.SeriesFrom(ps)
		snap.byAbbrev[ps.Team.Abbrev] = i
	}
	return snap
}

// Series returns the current lines, restricted to divisions when any are
// given.
func (s *Service) Series(divisions ...model.Division) types.Snapshot {
	snap := s.current.Load()
	out := types.Snapshot{Baseline: s.baseline}
	if snap == nil {
		return out
	}
	out.BuiltAt = snap.builtAt

	keep := make(map[string]bool, len(divisions))
	for _, d := range divisions {
		keep[d.String()] = true
	}
	for _, ts := range snap.series {
		if len(keep) == 0 || keep[ts.Division] {
			out.Series = append(out.Series, ts)
		}
	}
	return out
}

// TeamSeries returns one team's line by abbreviation.
func (s *Service) TeamSeries(abbrev string) (types.Series, error) {
	snap := s.current.Load()
	if snap == nil {
		return types.Series{}, ErrNotStarted
	}
	i, ok := snap.byAbbrev[strings.ToUpper(abbrev)]
	if !ok {
		return types.Series{}, fmt.Errorf("%w: %q", ErrUnknownTeam, abbrev)
	}
	return snap.series[i], nil
}

// Teams returns team display metadata.
func (s *Service) Teams() []types.Team {
	s.mu.RLock()
	ref := s.ref
	s.mu.RUnlock()
	if ref == nil {
		return nil
	}
	teams := ref.Teams()
	out := make([]types.Team, len(teams))
	for i, t := range teams {
		out[i] = types.TeamFrom(t)
	}
	return out
}

// Refresh starts a background fetch and returns its request id.
func (s *Service) Refresh(force bool) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return uuid.Nil, ErrNotStarted
	}
	return s.fetches.Trigger(force)
}

// Stop gracefully shuts down the service. A pass already in progress
// finishes before the ledger is closed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping series service...")

	drained := make(chan struct{})
	go func() {
		s.polls.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn(ctx, "reconciliation pass still running at shutdown")
	}

	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "scheduler stop timed out", logger.Error(err))
		}
	}
	if err := s.fetches.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "fetch worker shutdown", logger.Error(err))
	}
	_ = s.handoff.Close()

	if err := s.ledger.Close(); err != nil {
		s.logger.Warn(ctx, "closing ledger", logger.Error(err))
	}

	s.logger.Info(ctx, "series service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"season":      s.season,
		"derive_from": string(s.deriveFrom),
		"baseline":    s.baseline,
		"passes":      s.passes.Load(),
		"dropped":     s.dropped.Load(),
	}

	if s.started {
		ws := s.fetches.Stats()
		stats["fetches_in_flight"] = ws.InFlight
		stats["fetches_triggered"] = ws.Triggered
		stats["fetches_failed"] = ws.Failed
		stats["batches_dropped"] = ws.Dropped
		stats["handoff_length"] = s.handoff.Len()
		stats["handoff_capacity"] = s.handoff.Cap()
		metrics.UpdateHandoffDepth(s.handoff.Len())
	}
	if snap := s.current.Load(); snap != nil {
		stats["snapshot_built_at"] = snap.builtAt
		stats["snapshot_source"] = string(snap.source)
		if snap.batchID != uuid.Nil {
			stats["snapshot_batch_id"] = snap.batchID.String()
		}
	}
	if rep := s.lastReport.Load(); rep != nil {
		stats["last_pass"] = map[string]interface{}{
			"batch_id":        rep.BatchID.String(),
			"games_seen":      rep.GamesSeen,
			"games_inserted":  rep.GamesInserted,
			"scores_inserted": rep.ScoresInserted,
			"scores_attached": rep.ScoresAttached,
			"pending":         rep.Pending,
			"failures":        len(rep.Failures),
			"duration_ms":     rep.Duration.Milliseconds(),
		}
	}
	return stats
}
