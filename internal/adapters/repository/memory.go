package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// MemoryStore is a process-local ledger. It enforces the same references as
// the SQL schema once SyncReference has run.
type MemoryStore struct {
	mu        sync.RWMutex
	games     map[model.GameID]model.GameRecord
	scores    map[model.ScoreID]model.ScoreRecord
	types     map[model.OutcomeTypeID]model.OutcomeType
	teams     map[model.TeamID]struct{}
	scoreRefs map[model.ScoreID]model.GameID
	nextScore model.ScoreID
	closed    bool
}

// NewMemoryStore creates an empty ledger.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		games:     make(map[model.GameID]model.GameRecord),
		scores:    make(map[model.ScoreID]model.ScoreRecord),
		types:     make(map[model.OutcomeTypeID]model.OutcomeType),
		teams:     make(map[model.TeamID]struct{}),
		scoreRefs: make(map[model.ScoreID]model.GameID),
		nextScore: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) SyncReference(_ context.Context, teams []model.Team, outcomeTypes []model.OutcomeType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, t := range teams {
		s.teams[t.ID] = struct{}{}
	}
	for _, ot := range outcomeTypes {
		s.types[ot.ID] = ot
	}
	return nil
}

func (s *MemoryStore) OutcomeTypes(_ context.Context) ([]model.OutcomeType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.OutcomeType, 0, len(s.types))
	for _, ot := range s.types {
		out = append(out, ot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Games(_ context.Context) ([]model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.collect(func(model.GameRecord) bool { return true }), nil
}

func (s *MemoryStore) GamesForTeam(_ context.Context, team model.TeamID) ([]model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.collect(func(g model.GameRecord) bool { return g.Home == team || g.Away == team }), nil
}

// collect must be called with s.mu held.
func (s *MemoryStore) collect(keep func(model.GameRecord) bool) []model.GameRecord {
	out := make([]model.GameRecord, 0, len(s.games))
	for _, g := range s.games {
		if keep(g) {
			out = append(out, cloneGame(g))
		}
	}
	SortGames(out)
	return out
}

func (s *MemoryStore) Scores(_ context.Context) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.ScoreRecord, 0, len(s.scores))
	for _, sc := range s.scores {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) KnownGames(_ context.Context) (map[model.GameID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	known := make(map[model.GameID]bool, len(s.games))
	for id, g := range s.games {
		known[id] = g.Scored()
	}
	return known, nil
}

func (s *MemoryStore) InsertScore(_ context.Context, sc model.ScoreRecord) (model.ScoreID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertScore(sc)
}

func (s *MemoryStore) InsertGame(_ context.Context, g model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertGame(g)
}

func (s *MemoryStore) AttachScore(_ context.Context, game model.GameID, score model.ScoreID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attach(game, score)
}

// InsertScoredGame writes the score and game under one lock; a rejected game
// leaves no orphan score behind.
func (s *MemoryStore) InsertScoredGame(_ context.Context, g model.GameRecord, sc model.ScoreRecord) (model.ScoreID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkGame(g); err != nil {
		return 0, err
	}
	id, err := s.insertScore(sc)
	if err != nil {
		return 0, err
	}
	g.ScoreID = &id
	if err := s.insertGame(g); err != nil {
		s.dropScore(id)
		return 0, err
	}
	return id, nil
}

// AttachNewScore writes a score and attaches it to an unscored game.
func (s *MemoryStore) AttachNewScore(_ context.Context, game model.GameID, sc model.ScoreRecord) (model.ScoreID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAttachable(game); err != nil {
		return 0, err
	}
	id, err := s.insertScore(sc)
	if err != nil {
		return 0, err
	}
	if err := s.attach(game, id); err != nil {
		s.dropScore(id)
		return 0, err
	}
	return id, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) insertScore(sc model.ScoreRecord) (model.ScoreID, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if len(s.types) > 0 {
		if _, ok := s.types[sc.OutcomeTypeID]; !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownOutcomeType, sc.OutcomeTypeID)
		}
	}
	sc.ID = s.nextScore
	s.nextScore++
	s.scores[sc.ID] = sc
	return sc.ID, nil
}

func (s *MemoryStore) dropScore(id model.ScoreID) {
	delete(s.scores, id)
}

func (s *MemoryStore) checkGame(g model.GameRecord) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.games[g.ExternalID]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateGame, g.ExternalID)
	}
	if g.Home == g.Away {
		return fmt.Errorf("%w: game %d team %d", ErrSelfMatch, g.ExternalID, g.Home)
	}
	if len(s.teams) > 0 {
		for _, id := range []model.TeamID{g.Home, g.Away} {
			if _, ok := s.teams[id]; !ok {
				return fmt.Errorf("%w: %d", ErrUnknownTeam, id)
			}
		}
	}
	return nil
}

func (s *MemoryStore) insertGame(g model.GameRecord) error {
	if err := s.checkGame(g); err != nil {
		return err
	}
	if g.ScoreID != nil {
		if err := s.checkScoreFree(*g.ScoreID); err != nil {
			return err
		}
		s.scoreRefs[*g.ScoreID] = g.ExternalID
	}
	s.games[g.ExternalID] = cloneGame(g)
	return nil
}

func (s *MemoryStore) checkAttachable(game model.GameID) error {
	if s.closed {
		return ErrClosed
	}
	g, ok := s.games[game]
	if !ok {
		return fmt.Errorf("%w: %d", ErrGameNotFound, game)
	}
	if g.Scored() {
		return fmt.Errorf("%w: %d", ErrAlreadyScored, game)
	}
	return nil
}

func (s *MemoryStore) attach(game model.GameID, score model.ScoreID) error {
	if err := s.checkAttachable(game); err != nil {
		return err
	}
	if err := s.checkScoreFree(score); err != nil {
		return err
	}
	g := s.games[game]
	g.ScoreID = &score
	s.games[game] = g
	s.scoreRefs[score] = game
	return nil
}

// checkScoreFree mirrors the foreign key and unique constraint on games.score_id.
func (s *MemoryStore) checkScoreFree(id model.ScoreID) error {
	if _, ok := s.scores[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScore, id)
	}
	if other, taken := s.scoreRefs[id]; taken {
		return fmt.Errorf("%w: score %d belongs to game %d", ErrAlreadyScored, id, other)
	}
	return nil
}

func cloneGame(g model.GameRecord) model.GameRecord {
	if g.ScoreID != nil {
		id := *g.ScoreID
		g.ScoreID = &id
	}
	return g
}

// SortGames orders games by start time, then external id.
func SortGames(games []model.GameRecord) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].StartTime.Equal(games[j].StartTime) {
			return games[i].StartTime.Before(games[j].StartTime)
		}
		return games[i].ExternalID < games[j].ExternalID
	})
}
