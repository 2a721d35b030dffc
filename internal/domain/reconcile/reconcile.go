// Package reconcile merges fetched schedules into the game ledger.
//
// A pass runs in two phases. Plan is pure: it filters, deduplicates and maps
// the whole batch, failing before any write if a team or outcome code cannot
// be mapped. Apply then executes the planned writes in order, recording
// per-record persistence failures without stopping.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hockeyplots/internal/domain/dedupe"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/logger"
	"github.com/okian/hockeyplots/pkg/metrics"
)

// Ledger is what the reconciler needs from persistent storage.
type Ledger interface {
	KnownGames(ctx context.Context) (map[model.GameID]bool, error)
	InsertScore(ctx context.Context, s model.ScoreRecord) (model.ScoreID, error)
	InsertGame(ctx context.Context, g model.GameRecord) error
	AttachScore(ctx context.Context, game model.GameID, score model.ScoreID) error
}

// AtomicLedger is optionally implemented by ledgers that write a score and
// its game in one transaction.
type AtomicLedger interface {
	InsertScoredGame(ctx context.Context, g model.GameRecord, s model.ScoreRecord) (model.ScoreID, error)
	AttachNewScore(ctx context.Context, game model.GameID, s model.ScoreRecord) (model.ScoreID, error)
}

// Reference resolves feed identifiers. *reference.Store implements it.
type Reference interface {
	TeamByFeedID(id model.FeedTeamID) (model.Team, bool)
	OutcomeCodes() (map[string]model.OutcomeTypeID, error)
}

// SkipReason says why a fetched game produced no write.
type SkipReason string

const (
	SkipNonRegular SkipReason = "non_regular"
	SkipDuplicate  SkipReason = "duplicate"
	SkipKnown      SkipReason = "known"
)

// Action is a planned ledger write.
type Action int

const (
	// ActionInsertGame stores a game that has no result yet.
	ActionInsertGame Action = iota
	// ActionInsertScoredGame stores a final game together with its score.
	ActionInsertScoredGame
	// ActionAttachScore scores a known game that was stored unscored.
	ActionAttachScore
)

func (a Action) String() string {
	switch a {
	case ActionInsertScoredGame:
		return "insert_scored_game"
	case ActionAttachScore:
		return "attach_score"
	default:
		return "insert_game"
	}
}

// Mutation is one planned write.
type Mutation struct {
	Action Action
	Game   model.GameRecord
	Score  *model.ScoreRecord
}

// Failure is a record that could not be written.
type Failure struct {
	GameID model.GameID
	Op     string
	Err    error
}

// Plan is the pure result of mapping a batch against the known games.
type Plan struct {
	BatchID   uuid.UUID
	Seen      int
	Mutations []Mutation
	Skipped   map[SkipReason]int
	Failures  []Failure
}

// Report summarises an applied pass.
type Report struct {
	BatchID        uuid.UUID
	GamesSeen      int
	GamesInserted  int
	ScoresInserted int
	ScoresAttached int
	Pending        int
	Skipped        map[SkipReason]int
	Failures       []Failure
	Duration       time.Duration
}

// Reconciler merges batches into a ledger. It is not safe for concurrent
// passes; the foreground loop is its only caller.
type Reconciler struct {
	ledger   Ledger
	atomic   AtomicLedger
	ref      Reference
	codes    map[string]model.OutcomeTypeID
	backfill bool
	logger   logger.Logger
}

// New builds a Reconciler. The outcome code table is resolved once here;
// a missing definition is returned as a fatal error.
func New(ledger Ledger, ref Reference, opts ...Option) (*Reconciler, error) {
	codes, err := ref.OutcomeCodes()
	if err != nil {
		return nil, fmt.Errorf("building outcome code table: %w", err)
	}
	r := &Reconciler{
		ledger:   ledger,
		ref:      ref,
		codes:    codes,
		backfill: true,
		logger:   logger.Get().Named("reconciler"),
	}
	if a, ok := ledger.(AtomicLedger); ok {
		r.atomic = a
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Reconcile runs a full pass: read known games, plan, apply. The returned
// error is either fatal (IsFatal) or ErrLedgerUnavailable; per-record write
// failures are in the Report.
func (r *Reconciler) Reconcile(ctx context.Context, batch *model.Batch) (Report, error) {
	start := time.Now()

	known, err := r.ledger.KnownGames(ctx)
	if err != nil {
		metrics.RecordReconcilePass("ledger_unavailable", time.Since(start))
		return Report{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	plan, err := r.Plan(batch, known)
	if err != nil {
		metrics.RecordReconcilePass("fatal", time.Since(start))
		return Report{}, err
	}

	rep := r.Apply(ctx, plan)
	rep.Duration = time.Since(start)
	metrics.RecordReconcilePass("ok", rep.Duration)

	r.logger.Info(ctx, "reconciliation pass complete",
		logger.String("batch_id", rep.BatchID.String()),
		logger.Int("games_seen", rep.GamesSeen),
		logger.Int("games_inserted", rep.GamesInserted),
		logger.Int("scores_inserted", rep.ScoresInserted),
		logger.Int("scores_attached", rep.ScoresAttached),
		logger.Int("skipped_known", rep.Skipped[SkipKnown]),
		logger.Int("failures", len(rep.Failures)),
		logger.Duration("duration", rep.Duration),
	)
	if rep.Pending > 0 {
		r.logger.Info(ctx, "games stored without outcome", logger.Int("count", rep.Pending))
	}
	return rep, nil
}

// Plan maps batch against known without touching the ledger. known maps
// external ids already stored to whether they have a score.
//
// A final copy of a game wins over an unscored one regardless of which team's
// schedule lists it first: unscored copies stay provisional and are replaced
// when a final copy of the same game turns up later in the batch.
func (r *Reconciler) Plan(batch *model.Batch, known map[model.GameID]bool) (*Plan, error) {
	p := &Plan{BatchID: batch.ID, Skipped: make(map[SkipReason]int)}
	seen := dedupe.NewSeenSet(dedupe.WithCapacity(batch.Size() / 2))
	// provisional maps a game taken from an unscored copy to its mutation
	// index, or -1 when that copy was skipped as known.
	provisional := make(map[model.GameID]int)

	for _, g := range batch.Games() {
		p.Seen++

		if g.Category() != model.CategoryRegularSeason {
			p.Skipped[SkipNonRegular]++
			continue
		}
		if seen.Contains(g.ID) {
			p.Skipped[SkipDuplicate]++
			continue
		}
		_, isProvisional := provisional[g.ID]
		if isProvisional && !g.Final() {
			p.Skipped[SkipDuplicate]++
			continue
		}

		home, away, err := r.mapTeams(g)
		if err != nil {
			return nil, err
		}
		rec := model.GameRecord{ExternalID: g.ID, Home: home.ID, Away: away.ID, StartTime: g.StartTimeUTC}
		scored, isKnown := known[g.ID]

		if !g.Final() {
			if isKnown {
				provisional[g.ID] = -1
				p.Skipped[SkipKnown]++
				continue
			}
			provisional[g.ID] = len(p.Mutations)
			p.Mutations = append(p.Mutations, Mutation{Action: ActionInsertGame, Game: rec})
			continue
		}

		typeID, ok := r.codes[g.GameOutcome.LastPeriodType]
		if !ok {
			return nil, fmt.Errorf("%w: game %d code %q", model.ErrUnknownOutcome, g.ID, g.GameOutcome.LastPeriodType)
		}
		h, a, err := g.Tallies()
		if err != nil {
			// The other team's copy of this game may carry the tallies.
			p.Failures = append(p.Failures, Failure{GameID: g.ID, Op: "map", Err: err})
			continue
		}
		seen.SeenAndRecord(g.ID)

		var m *Mutation
		switch {
		case isKnown && (scored || !r.backfill):
			if !isProvisional {
				p.Skipped[SkipKnown]++
			} else {
				p.Skipped[SkipDuplicate]++
			}
			continue
		case isKnown:
			m = &Mutation{Action: ActionAttachScore, Game: rec}
		default:
			m = &Mutation{Action: ActionInsertScoredGame, Game: rec}
		}
		m.Score = &model.ScoreRecord{Home: h, Away: a, OutcomeTypeID: typeID}

		if !isProvisional {
			p.Mutations = append(p.Mutations, *m)
			continue
		}
		// The earlier unscored copy becomes the duplicate.
		p.Skipped[SkipDuplicate]++
		if i := provisional[g.ID]; i >= 0 {
			p.Mutations[i] = *m
		} else {
			p.Skipped[SkipKnown]--
			p.Mutations = append(p.Mutations, *m)
		}
		delete(provisional, g.ID)
	}
	return p, nil
}

func (r *Reconciler) mapTeams(g model.ScheduledGame) (model.Team, model.Team, error) {
	home, ok := r.ref.TeamByFeedID(g.HomeTeam.ID)
	if !ok {
		return model.Team{}, model.Team{}, fmt.Errorf("%w: %d in game %d", ErrUnknownTeam, g.HomeTeam.ID, g.ID)
	}
	away, ok := r.ref.TeamByFeedID(g.AwayTeam.ID)
	if !ok {
		return model.Team{}, model.Team{}, fmt.Errorf("%w: %d in game %d", ErrUnknownTeam, g.AwayTeam.ID, g.ID)
	}
	return home, away, nil
}

// Apply executes the plan's writes in order.
func (r *Reconciler) Apply(ctx context.Context, p *Plan) Report {
	rep := Report{
		BatchID:   p.BatchID,
		GamesSeen: p.Seen,
		Skipped:   p.Skipped,
		Failures:  append([]Failure(nil), p.Failures...),
	}

	for _, m := range p.Mutations {
		var err error
		switch m.Action {
		case ActionInsertGame:
			if err = r.ledger.InsertGame(ctx, m.Game); err == nil {
				rep.GamesInserted++
				rep.Pending++
			}
		case ActionInsertScoredGame:
			if err = r.insertScoredGame(ctx, m); err == nil {
				rep.GamesInserted++
				rep.ScoresInserted++
			}
		case ActionAttachScore:
			if err = r.attachScore(ctx, m); err == nil {
				rep.ScoresAttached++
			}
		}
		if err != nil {
			metrics.RecordPersistenceError(m.Action.String())
			r.logger.Warn(ctx, "ledger write failed",
				logger.String("op", m.Action.String()),
				logger.Int64("game_id", int64(m.Game.ExternalID)),
				logger.Error(err))
			rep.Failures = append(rep.Failures, Failure{GameID: m.Game.ExternalID, Op: m.Action.String(), Err: err})
		}
	}

	metrics.RecordGamesInserted(rep.GamesInserted)
	metrics.RecordScoresInserted(rep.ScoresInserted)
	metrics.RecordScoresAttached(rep.ScoresAttached)
	for reason, n := range rep.Skipped {
		metrics.RecordGamesSkipped(string(reason), n)
	}
	return rep
}

// insertScoredGame writes score then game. Without a transactional ledger
// the game write is skipped when the score write fails.
func (r *Reconciler) insertScoredGame(ctx context.Context, m Mutation) error {
	if r.atomic != nil {
		_, err := r.atomic.InsertScoredGame(ctx, m.Game, *m.Score)
		return err
	}
	id, err := r.ledger.InsertScore(ctx, *m.Score)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	g := m.Game
	g.ScoreID = &id
	if err := r.ledger.InsertGame(ctx, g); err != nil {
		return fmt.Errorf("insert game after score %d: %w", id, err)
	}
	return nil
}

func (r *Reconciler) attachScore(ctx context.Context, m Mutation) error {
	if r.atomic != nil {
		_, err := r.atomic.AttachNewScore(ctx, m.Game.ExternalID, *m.Score)
		return err
	}
	id, err := r.ledger.InsertScore(ctx, *m.Score)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	if err := r.ledger.AttachScore(ctx, m.Game.ExternalID, id); err != nil {
		return fmt.Errorf("attach score %d: %w", id, err)
	}
	return nil
}
