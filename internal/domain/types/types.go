// Package types contains the response shapes shared by the read API.
package types

import (
	"time"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/points"
)

// Team is a team's display metadata.
type Team struct {
	Abbrev   string `json:"abbrev"`
	Color    string `json:"color"`
	Division string `json:"division"`
}

// Point is one plotted sample: x is the game index, y the cumulative value.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Series is a team's plottable line.
type Series struct {
	Team
	GamesPlayed int     `json:"games_played"`
	Final       float64 `json:"final"`
	Points      []Point `json:"points"`
}

// Snapshot is the full set of lines at one instant.
type Snapshot struct {
	BuiltAt  time.Time `json:"built_at"`
	Baseline float64   `json:"baseline"`
	Series   []Series  `json:"series"`
}

// TeamFrom renders a reference team.
func TeamFrom(t model.Team) Team {
	return Team{Abbrev: t.Abbrev, Color: t.Color.Hex(), Division: t.Division.String()}
}

// SeriesFrom renders a derived series.
func SeriesFrom(s points.Series) Series {
	out := Series{
		Team:        TeamFrom(s.Team),
		GamesPlayed: s.GamesPlayed(),
		Final:       s.Final(),
		Points:      make([]Point, len(s.Points)),
	}
	for i, p := range s.Points {
		out.Points[i] = Point{X: p.Index, Y: p.Value}
	}
	return out
}
