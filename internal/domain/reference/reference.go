// Package reference holds the static team, division and outcome tables.
//
// The tables are loaded once per process and are read-only afterwards, so a
// Store is safe for concurrent use without locking.
package reference

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/okian/hockeyplots/internal/domain/model"
)

//go:embed nhl.yaml
var defaultTable []byte

// TeamRow is one team entry in the reference file.
type TeamRow struct {
	ID       int64  `koanf:"id" validate:"required,gt=0"`
	FeedID   int64  `koanf:"feed_id" validate:"required,gt=0"`
	Abbrev   string `koanf:"abbrev" validate:"required,len=3,alpha,uppercase"`
	Color    string `koanf:"color" validate:"required,hexcolor,len=7"`
	Division string `koanf:"division" validate:"required"`
}

// OutcomeTypeRow is one outcome definition in the reference file.
type OutcomeTypeRow struct {
	ID   int64  `koanf:"id" validate:"required,gt=0"`
	Name string `koanf:"name" validate:"required"`
}

// Data is the raw reference file.
type Data struct {
	Divisions    []string         `koanf:"divisions" validate:"required,min=1,dive,required"`
	OutcomeTypes []OutcomeTypeRow `koanf:"outcome_types" validate:"required,min=1,dive"`
	Teams        []TeamRow        `koanf:"teams" validate:"required,min=1,dive"`
}

// Store answers team and outcome lookups.
type Store struct {
	divisions    []model.Division
	teams        []model.Team
	byID         map[model.TeamID]model.Team
	byFeedID     map[model.FeedTeamID]model.Team
	byAbbrev     map[string]model.Team
	outcomeTypes []model.OutcomeType
	typeByName   map[string]model.OutcomeTypeID
	outcomeByID  map[model.OutcomeTypeID]model.Outcome
}

// Load reads the table at path, or the built-in table when path is empty.
func Load(_ context.Context, path string) (*Store, error) {
	var p koanf.Provider = rawbytes.Provider(defaultTable)
	if path != "" {
		p = file.Provider(path)
	}

	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	var data Data
	if err := k.UnmarshalWithConf("", &data, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return New(data)
}

// Default returns the built-in table.
func Default() (*Store, error) {
	return Load(context.Background(), "")
}

// New validates data and builds the lookup indexes.
func New(data Data) (*Store, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	s := &Store{
		byID:        make(map[model.TeamID]model.Team, len(data.Teams)),
		byFeedID:    make(map[model.FeedTeamID]model.Team, len(data.Teams)),
		byAbbrev:    make(map[string]model.Team, len(data.Teams)),
		typeByName:  make(map[string]model.OutcomeTypeID, len(data.OutcomeTypes)),
		outcomeByID: make(map[model.OutcomeTypeID]model.Outcome, len(data.OutcomeTypes)),
	}

	known := make(map[model.Division]bool, len(data.Divisions))
	for _, name := range data.Divisions {
		d, ok := model.ParseDivision(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDivision, name)
		}
		if !known[d] {
			known[d] = true
			s.divisions = append(s.divisions, d)
		}
	}

	for _, row := range data.OutcomeTypes {
		o, err := model.ParseOutcomeName(row.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownOutcomeType, err)
		}
		id := model.OutcomeTypeID(row.ID)
		if _, dup := s.outcomeByID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate outcome type id %d", ErrInvalidReference, id)
		}
		if _, dup := s.typeByName[row.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate outcome type %q", ErrInvalidReference, row.Name)
		}
		s.typeByName[row.Name] = id
		s.outcomeByID[id] = o
		s.outcomeTypes = append(s.outcomeTypes, model.OutcomeType{ID: id, Name: row.Name})
	}

	for _, row := range data.Teams {
		d, ok := model.ParseDivision(row.Division)
		if !ok || !known[d] {
			return nil, fmt.Errorf("%w: team %s division %q", ErrUnknownDivision, row.Abbrev, row.Division)
		}
		color, err := model.ParseHexColor(row.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: team %s: %v", ErrInvalidReference, row.Abbrev, err)
		}
		t := model.Team{
			ID:       model.TeamID(row.ID),
			FeedID:   model.FeedTeamID(row.FeedID),
			Abbrev:   row.Abbrev,
			Color:    color,
			Division: d,
		}
		if _, dup := s.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate team id %d", ErrInvalidReference, t.ID)
		}
		if _, dup := s.byFeedID[t.FeedID]; dup {
			return nil, fmt.Errorf("%w: duplicate feed id %d", ErrInvalidReference, t.FeedID)
		}
		if _, dup := s.byAbbrev[t.Abbrev]; dup {
			return nil, fmt.Errorf("%w: duplicate abbreviation %s", ErrInvalidReference, t.Abbrev)
		}
		s.byID[t.ID] = t
		s.byFeedID[t.FeedID] = t
		s.byAbbrev[t.Abbrev] = t
		s.teams = append(s.teams, t)
	}

	sort.SliceStable(s.teams, func(i, j int) bool { return s.teams[i].ID < s.teams[j].ID })
	sort.Slice(s.outcomeTypes, func(i, j int) bool { return s.outcomeTypes[i].ID < s.outcomeTypes[j].ID })
	return s, nil
}

// Teams returns every team ordered by internal id.
func (s *Store) Teams() []model.Team {
	out := make([]model.Team, len(s.teams))
	copy(out, s.teams)
	return out
}

// Divisions returns the divisions in file order.
func (s *Store) Divisions() []model.Division {
	out := make([]model.Division, len(s.divisions))
	copy(out, s.divisions)
	return out
}

func (s *Store) TeamByID(id model.TeamID) (model.Team, bool) {
	t, ok := s.byID[id]
	return t, ok
}

func (s *Store) TeamByFeedID(id model.FeedTeamID) (model.Team, bool) {
	t, ok := s.byFeedID[id]
	return t, ok
}

func (s *Store) TeamByAbbrev(abbrev string) (model.Team, bool) {
	t, ok := s.byAbbrev[abbrev]
	return t, ok
}

// OutcomeTypes returns the outcome definitions ordered by id.
func (s *Store) OutcomeTypes() []model.OutcomeType {
	out := make([]model.OutcomeType, len(s.outcomeTypes))
	copy(out, s.outcomeTypes)
	return out
}

// OutcomeTypeID returns the definition id for o.
func (s *Store) OutcomeTypeID(o model.Outcome) (model.OutcomeTypeID, error) {
	id, ok := s.typeByName[o.String()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOutcomeType, o)
	}
	return id, nil
}

// OutcomeFor returns the outcome a definition id stands for.
func (s *Store) OutcomeFor(id model.OutcomeTypeID) (model.Outcome, error) {
	o, ok := s.outcomeByID[id]
	if !ok {
		return model.OutcomeUnknown, fmt.Errorf("%w: id %d", model.ErrUnknownOutcome, id)
	}
	return o, nil
}

// OutcomeCodes builds the feed code to definition id table. Every feed code
// must resolve, otherwise the table is unusable.
func (s *Store) OutcomeCodes() (map[string]model.OutcomeTypeID, error) {
	codes := make(map[string]model.OutcomeTypeID, len(model.FeedCodes()))
	for _, code := range model.FeedCodes() {
		o, err := model.ParseOutcomeCode(code)
		if err != nil {
			return nil, err
		}
		id, err := s.OutcomeTypeID(o)
		if err != nil {
			return nil, fmt.Errorf("feed code %s: %w", code, err)
		}
		codes[code] = id
	}
	return codes, nil
}
