package repository

import (
	"context"
	"fmt"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// View is a read-only join of games, scores and outcome definitions,
// grouped per team in ledger order. Team references are internal ids.
type View struct {
	byTeam  map[model.TeamID][]model.Matchup
	games   int
	pending int
}

// LoadView reads the whole ledger once. A score whose outcome definition is
// missing or unrecognised fails the load with model.ErrUnknownOutcome.
func LoadView(ctx context.Context, s Store) (*View, error) {
	types, err := s.OutcomeTypes(ctx)
	if err != nil {
		return nil, err
	}
	outcomes := make(map[model.OutcomeTypeID]model.Outcome, len(types))
	for _, ot := range types {
		o, err := model.ParseOutcomeName(ot.Name)
		if err != nil {
			return nil, fmt.Errorf("outcome type %d: %w", ot.ID, err)
		}
		outcomes[ot.ID] = o
	}

	scoreRows, err := s.Scores(ctx)
	if err != nil {
		return nil, err
	}
	scores := make(map[model.ScoreID]model.ScoreRecord, len(scoreRows))
	for _, sc := range scoreRows {
		scores[sc.ID] = sc
	}

	games, err := s.Games(ctx)
	if err != nil {
		return nil, err
	}

	v := &View{byTeam: make(map[model.TeamID][]model.Matchup), games: len(games)}
	for _, g := range games {
		m := model.Matchup{GameID: g.ExternalID, Home: int64(g.Home), Away: int64(g.Away)}
		if g.ScoreID != nil {
			sc, ok := scores[*g.ScoreID]
			if !ok {
				return nil, fmt.Errorf("%w: game %d references score %d", ErrUnknownScore, g.ExternalID, *g.ScoreID)
			}
			o, ok := outcomes[sc.OutcomeTypeID]
			if !ok {
				return nil, fmt.Errorf("%w: game %d has outcome type %d", model.ErrUnknownOutcome, g.ExternalID, sc.OutcomeTypeID)
			}
			m.Final = &model.FinalScore{Home: sc.Home, Away: sc.Away, Outcome: o}
		} else {
			v.pending++
		}
		v.byTeam[g.Home] = append(v.byTeam[g.Home], m)
		if g.Away != g.Home {
			v.byTeam[g.Away] = append(v.byTeam[g.Away], m)
		}
	}
	return v, nil
}

// Matchups returns the team's games in ledger order.
func (v *View) Matchups(team model.TeamID) []model.Matchup {
	return v.byTeam[team]
}

// Games returns the number of games in the ledger.
func (v *View) Games() int { return v.games }

// Pending returns the number of games without a score.
func (v *View) Pending() int { return v.pending }
