// Package points turns a team's completed games into a cumulative
// points-above-expectation series.
package points

import (
	"fmt"
	"strings"

	"github.com/okian/hockeyplots/internal/domain/model"
)

// Points awarded per completed game.
const (
	WinPoints            = 2.0
	ExtraTimeLossPoints  = 1.0
	RegulationLossPoints = 0.0

	// DefaultBaseline is one point per game, the break-even pace.
	DefaultBaseline = 1.0
)

// IndexPolicy decides the x value given to each emitted point.
type IndexPolicy int

const (
	// IndexCompact numbers completed games 1..n.
	IndexCompact IndexPolicy = iota
	// IndexSchedule keeps schedule positions; unscored games use up an index.
	IndexSchedule
)

// ParseIndexPolicy maps "compact" or "schedule".
func ParseIndexPolicy(s string) (IndexPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compact":
		return IndexCompact, nil
	case "schedule":
		return IndexSchedule, nil
	default:
		return IndexCompact, fmt.Errorf("unknown index policy %q", s)
	}
}

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithBaseline sets the expected points per game.
func WithBaseline(b float64) Option {
	return func(d *Deriver) {
		d.baseline = b
	}
}

// WithIndexPolicy sets how points are indexed.
func WithIndexPolicy(p IndexPolicy) Option {
	return func(d *Deriver) {
		d.policy = p
	}
}

// Point is one (index, cumulative value) pair.
type Point struct {
	Index int
	Value float64
}

// Series is a team's cumulative series. Points[0] is always the origin.
type Series struct {
	Team   model.Team
	Points []Point
}

// Final returns the last cumulative value.
func (s Series) Final() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Value
}

// GamesPlayed returns the number of completed games in the series.
func (s Series) GamesPlayed() int {
	if len(s.Points) == 0 {
		return 0
	}
	return len(s.Points) - 1
}

// Deriver computes series. It holds no mutable state and may be shared.
type Deriver struct {
	baseline float64
	policy   IndexPolicy
}

// NewDeriver creates a Deriver with the default baseline and compact indexing.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{
		baseline: DefaultBaseline,
		policy:   IndexCompact,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Baseline returns the configured expected points per game.
func (d *Deriver) Baseline() float64 { return d.baseline }

// PointsFor applies the league rule from one team's perspective.
func PointsFor(own, opponent int, outcome model.Outcome) (float64, error) {
	if !outcome.Valid() {
		return 0, fmt.Errorf("%w: %d", model.ErrUnknownOutcome, int(outcome))
	}
	if own > opponent {
		return WinPoints, nil
	}
	if outcome == model.OutcomeRegulation {
		return RegulationLossPoints, nil
	}
	return ExtraTimeLossPoints, nil
}

// Derive builds team's series from its games in schedule order. Team
// references in games are compared against team.Ref(ns).
func (d *Deriver) Derive(team model.Team, ns model.Namespace, games []model.Matchup) (Series, error) {
	ref := team.Ref(ns)
	out := Series{Team: team, Points: make([]Point, 1, len(games)+1)}

	total := 0.0
	next := 1
	for _, g := range games {
		if g.Home != ref && g.Away != ref {
			return Series{}, fmt.Errorf("%w: team %s (%s id %d) in game %d",
				ErrNotParticipant, team.Abbrev, ns, ref, g.GameID)
		}
		if g.Final == nil {
			if d.policy == IndexSchedule {
				next++
			}
			continue
		}

		own, opp := g.Final.Home, g.Final.Away
		if g.Away == ref {
			own, opp = opp, own
		}
		pts, err := PointsFor(own, opp, g.Final.Outcome)
		if err != nil {
			return Series{}, fmt.Errorf("team %s game %d: %w", team.Abbrev, g.GameID, err)
		}

		total += pts - d.baseline
		out.Points = append(out.Points, Point{Index: next, Value: total})
		next++
	}
	return out, nil
}
