package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

// PgPool is the subset of *pgxpool.Pool the store uses.
type PgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is the ledger backed by PostgreSQL.
type PostgresStore struct {
	pool    PgPool
	closer  func()
	logger  logger.Logger
	migrate bool
}

// NewPostgresStore wraps an existing pool. The caller owns the pool.
func NewPostgresStore(pool PgPool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		pool:    pool,
		closer:  func() {},
		logger:  logger.Get().Named("ledger"),
		migrate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, url string, opts ...PostgresOption) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging ledger database: %w", err)
	}

	s := NewPostgresStore(pool, opts...)
	s.closer = pool.Close
	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	s.logger.Info(ctx, "connected to ledger database")
	return s, nil
}

// Migrate applies the embedded schema files in name order. Every file is
// idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", entry.Name(), err)
		}
		s.logger.Debug(ctx, "applied migration", logger.String("file", entry.Name()))
	}
	return nil
}

func (s *PostgresStore) SyncReference(ctx context.Context, teams []model.Team, outcomeTypes []model.OutcomeType) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sync reference: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ot := range outcomeTypes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO outcome_types (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			int64(ot.ID), ot.Name); err != nil {
			return fmt.Errorf("sync outcome type %s: %w", ot.Name, err)
		}
	}
	for _, t := range teams {
		if _, err := tx.Exec(ctx,
			`INSERT INTO divisions (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			t.Division.String()); err != nil {
			return fmt.Errorf("sync division %s: %w", t.Division, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO teams (id, feed_id, abbrev, r, g, b, division_id)
			 VALUES ($1, $2, $3, $4, $5, $6, (SELECT id FROM divisions WHERE name = $7))
			 ON CONFLICT (id) DO UPDATE SET feed_id = EXCLUDED.feed_id, abbrev = EXCLUDED.abbrev,
			   r = EXCLUDED.r, g = EXCLUDED.g, b = EXCLUDED.b, division_id = EXCLUDED.division_id`,
			int64(t.ID), int64(t.FeedID), t.Abbrev,
			int16(t.Color.R), int16(t.Color.G), int16(t.Color.B), t.Division.String()); err != nil {
			return fmt.Errorf("sync team %s: %w", t.Abbrev, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sync reference commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) OutcomeTypes(ctx context.Context) ([]model.OutcomeType, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM outcome_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query outcome types: %w", err)
	}
	defer rows.Close()

	var out []model.OutcomeType
	for rows.Next() {
		var id int64
		var ot model.OutcomeType
		if err := rows.Scan(&id, &ot.Name); err != nil {
			return nil, fmt.Errorf("scan outcome type: %w", err)
		}
		ot.ID = model.OutcomeTypeID(id)
		out = append(out, ot)
	}
	return out, rows.Err()
}

const gameColumns = `external_id, home_team_id, away_team_id, score_id, start_time`

func (s *PostgresStore) Games(ctx context.Context) ([]model.GameRecord, error) {
	return s.queryGames(ctx, `SELECT `+gameColumns+` FROM games ORDER BY start_time, external_id`)
}

func (s *PostgresStore) GamesForTeam(ctx context.Context, team model.TeamID) ([]model.GameRecord, error) {
	return s.queryGames(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE home_team_id = $1 OR away_team_id = $1
		 ORDER BY start_time, external_id`, int64(team))
}

func (s *PostgresStore) queryGames(ctx context.Context, sql string, args ...any) ([]model.GameRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []model.GameRecord
	for rows.Next() {
		var ext, home, away int64
		var scoreID *int64
		var start time.Time
		if err := rows.Scan(&ext, &home, &away, &scoreID, &start); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g := model.GameRecord{
			ExternalID: model.GameID(ext),
			Home:       model.TeamID(home),
			Away:       model.TeamID(away),
			StartTime:  start.UTC(),
		}
		if scoreID != nil {
			id := model.ScoreID(*scoreID)
			g.ScoreID = &id
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Scores(ctx context.Context) ([]model.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, home, away, outcome_type_id FROM scores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []model.ScoreRecord
	for rows.Next() {
		var id, typeID int64
		var sc model.ScoreRecord
		if err := rows.Scan(&id, &sc.Home, &sc.Away, &typeID); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		sc.ID = model.ScoreID(id)
		sc.OutcomeTypeID = model.OutcomeTypeID(typeID)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) KnownGames(ctx context.Context) (map[model.GameID]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT external_id, score_id IS NOT NULL FROM games`)
	if err != nil {
		return nil, fmt.Errorf("query known games: %w", err)
	}
	defer rows.Close()

	known := make(map[model.GameID]bool)
	for rows.Next() {
		var ext int64
		var scored bool
		if err := rows.Scan(&ext, &scored); err != nil {
			return nil, fmt.Errorf("scan known game: %w", err)
		}
		known[model.GameID(ext)] = scored
	}
	return known, rows.Err()
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) InsertScore(ctx context.Context, sc model.ScoreRecord) (model.ScoreID, error) {
	return insertScore(ctx, s.pool, sc)
}

func (s *PostgresStore) InsertGame(ctx context.Context, g model.GameRecord) error {
	return insertGame(ctx, s.pool, g)
}

func (s *PostgresStore) AttachScore(ctx context.Context, game model.GameID, score model.ScoreID) error {
	return attachScore(ctx, s.pool, game, score)
}

func (s *PostgresStore) InsertScoredGame(ctx context.Context, g model.GameRecord, sc model.ScoreRecord) (model.ScoreID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := insertScore(ctx, tx, sc)
	if err != nil {
		return 0, err
	}
	g.ScoreID = &id
	if err := insertGame(ctx, tx, g); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit game %d: %w", g.ExternalID, err)
	}
	return id, nil
}

func (s *PostgresStore) AttachNewScore(ctx context.Context, game model.GameID, sc model.ScoreRecord) (model.ScoreID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := insertScore(ctx, tx, sc)
	if err != nil {
		return 0, err
	}
	if err := attachScore(ctx, tx, game, id); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit score for game %d: %w", game, err)
	}
	return id, nil
}

func (s *PostgresStore) Close() error {
	s.closer()
	return nil
}

func insertScore(ctx context.Context, db execer, sc model.ScoreRecord) (model.ScoreID, error) {
	var id int64
	err := db.QueryRow(ctx,
		`INSERT INTO scores (home, away, outcome_type_id) VALUES ($1, $2, $3) RETURNING id`,
		sc.Home, sc.Away, int64(sc.OutcomeTypeID)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert score: %w", err)
	}
	return model.ScoreID(id), nil
}

func insertGame(ctx context.Context, db execer, g model.GameRecord) error {
	if g.Home == g.Away {
		return fmt.Errorf("%w: game %d team %d", ErrSelfMatch, g.ExternalID, g.Home)
	}
	var scoreID *int64
	if g.ScoreID != nil {
		v := int64(*g.ScoreID)
		scoreID = &v
	}
	_, err := db.Exec(ctx,
		`INSERT INTO games (`+gameColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		int64(g.ExternalID), int64(g.Home), int64(g.Away), scoreID, g.StartTime.UTC())
	if err != nil {
		if isUniqueViolation(err, "games_pkey") {
			return fmt.Errorf("%w: %d", ErrDuplicateGame, g.ExternalID)
		}
		return fmt.Errorf("insert game %d: %w", g.ExternalID, err)
	}
	return nil
}

func attachScore(ctx context.Context, db execer, game model.GameID, score model.ScoreID) error {
	tag, err := db.Exec(ctx,
		`UPDATE games SET score_id = $2 WHERE external_id = $1 AND score_id IS NULL`,
		int64(game), int64(score))
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: score %d", ErrAlreadyScored, score)
		}
		return fmt.Errorf("attach score to game %d: %w", game, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE external_id = $1)`, int64(game)).Scan(&exists); err != nil {
		return fmt.Errorf("attach score to game %d: %w", game, err)
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrGameNotFound, game)
	}
	return fmt.Errorf("%w: %d", ErrAlreadyScored, game)
}

// isUniqueViolation matches a unique violation, optionally on one constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
