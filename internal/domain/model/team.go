// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// TeamID is the internal (ledger) team identifier.
type TeamID int64

// FeedTeamID is the team identifier used by the schedule feed.
type FeedTeamID int64

// Namespace says which identifier space a game's team references live in.
type Namespace int

const (
	// NamespaceInternal marks games read back from the ledger.
	NamespaceInternal Namespace = iota
	// NamespaceFeed marks games taken straight from a fetched batch.
	NamespaceFeed
)

func (n Namespace) String() string {
	if n == NamespaceFeed {
		return "feed"
	}
	return "internal"
}

// Division is one of the league's four divisions.
type Division int

const (
	DivisionUnknown Division = iota
	DivisionMetropolitan
	DivisionAtlantic
	DivisionCentral
	DivisionPacific
)

var divisionNames = map[Division]string{
	DivisionMetropolitan: "Metropolitan",
	DivisionAtlantic:     "Atlantic",
	DivisionCentral:      "Central",
	DivisionPacific:      "Pacific",
}

// Divisions lists every known division in display order.
func Divisions() []Division {
	return []Division{DivisionMetropolitan, DivisionAtlantic, DivisionCentral, DivisionPacific}
}

func (d Division) String() string {
	if s, ok := divisionNames[d]; ok {
		return s
	}
	return "Unknown"
}

// ParseDivision matches a division name case-insensitively.
func ParseDivision(name string) (Division, bool) {
	for d, s := range divisionNames {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			return d, true
		}
	}
	return DivisionUnknown, false
}

// Color is a team's display color.
type Color struct {
	R, G, B uint8
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHexColor parses #rrggbb.
func ParseHexColor(s string) (Color, error) {
	var c Color
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("color %q: want #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("color %q: %w", s, err)
	}
	return c, nil
}

// Team is an immutable reference-table row.
type Team struct {
	ID       TeamID
	FeedID   FeedTeamID
	Abbrev   string
	Color    Color
	Division Division
}

// Ref returns the team's identifier in the given namespace.
func (t Team) Ref(ns Namespace) int64 {
	if ns == NamespaceFeed {
		return int64(t.FeedID)
	}
	return int64(t.ID)
}
