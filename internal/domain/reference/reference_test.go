package reference_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/reference"
)

func validData() reference.Data {
	return reference.Data{
		Divisions: []string{"Central", "Pacific"},
		OutcomeTypes: []reference.OutcomeTypeRow{
			{ID: 1, Name: "Regulation"},
			{ID: 2, Name: "Overtime"},
			{ID: 3, Name: "Shootout"},
		},
		Teams: []reference.TeamRow{
			{ID: 2, FeedID: 52, Abbrev: "WPG", Color: "#041e42", Division: "Central"},
			{ID: 1, FeedID: 22, Abbrev: "EDM", Color: "#ff4c00", Division: "Pacific"},
		},
	}
}

func TestDefaultTable(t *testing.T) {
	Convey("Given the built-in reference table", t, func() {
		store, err := reference.Default()
		So(err, ShouldBeNil)

		Convey("Then loading without a path should read the embedded table", func() {
			loaded, err := reference.Load(context.Background(), "")
			So(err, ShouldBeNil)
			So(loaded.Teams(), ShouldResemble, store.Teams())
		})

		Convey("Then it should hold every club of the season", func() {
			So(store.Teams(), ShouldHaveLength, 32)
			So(store.Divisions(), ShouldHaveLength, 4)
			So(store.OutcomeTypes(), ShouldHaveLength, 3)
		})

		Convey("Then each division should have eight teams", func() {
			counts := map[model.Division]int{}
			for _, team := range store.Teams() {
				counts[team.Division]++
			}
			for _, d := range model.Divisions() {
				So(counts[d], ShouldEqual, 8)
			}
		})

		Convey("Then lookups should agree across keys", func() {
			byAbbrev, ok := store.TeamByAbbrev("TOR")
			So(ok, ShouldBeTrue)
			byFeed, ok := store.TeamByFeedID(10)
			So(ok, ShouldBeTrue)
			byID, ok := store.TeamByID(byAbbrev.ID)
			So(ok, ShouldBeTrue)
			So(byFeed, ShouldResemble, byAbbrev)
			So(byID, ShouldResemble, byAbbrev)
			So(byAbbrev.Division, ShouldEqual, model.DivisionAtlantic)

			_, ok = store.TeamByFeedID(999)
			So(ok, ShouldBeFalse)
		})

		Convey("Then every feed outcome code should resolve", func() {
			codes, err := store.OutcomeCodes()
			So(err, ShouldBeNil)
			So(codes, ShouldResemble, map[string]model.OutcomeTypeID{"REG": 1, "OT": 2, "SO": 3})

			o, err := store.OutcomeFor(3)
			So(err, ShouldBeNil)
			So(o, ShouldEqual, model.OutcomeShootout)

			_, err = store.OutcomeFor(42)
			So(errors.Is(err, model.ErrUnknownOutcome), ShouldBeTrue)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given reference rows", t, func() {
		Convey("When they are valid", func() {
			store, err := reference.New(validData())

			Convey("Then teams should be ordered by internal id", func() {
				So(err, ShouldBeNil)
				teams := store.Teams()
				So(teams[0].Abbrev, ShouldEqual, "EDM")
				So(teams[1].Abbrev, ShouldEqual, "WPG")
				So(teams[1].Color, ShouldResemble, model.Color{R: 0x04, G: 0x1e, B: 0x42})
			})
		})

		Convey("When a team names an unknown division", func() {
			data := validData()
			data.Teams[0].Division = "Norris"
			_, err := reference.New(data)

			Convey("Then loading should fail with ErrUnknownDivision", func() {
				So(errors.Is(err, reference.ErrUnknownDivision), ShouldBeTrue)
			})
		})

		Convey("When a team names a division missing from the division list", func() {
			data := validData()
			data.Teams[0].Division = "Atlantic"
			_, err := reference.New(data)

			So(errors.Is(err, reference.ErrUnknownDivision), ShouldBeTrue)
		})

		Convey("When the division list itself holds an unknown name", func() {
			data := validData()
			data.Divisions = append(data.Divisions, "Smythe")
			_, err := reference.New(data)

			So(errors.Is(err, reference.ErrUnknownDivision), ShouldBeTrue)
		})

		Convey("When an outcome definition has an unknown name", func() {
			data := validData()
			data.OutcomeTypes[2].Name = "Forfeit"
			_, err := reference.New(data)

			So(errors.Is(err, reference.ErrUnknownOutcomeType), ShouldBeTrue)
		})

		Convey("When an outcome definition is missing", func() {
			data := validData()
			data.OutcomeTypes = data.OutcomeTypes[:2]
			store, err := reference.New(data)
			So(err, ShouldBeNil)

			Convey("Then building the feed code table should fail", func() {
				_, err := store.OutcomeCodes()
				So(errors.Is(err, reference.ErrUnknownOutcomeType), ShouldBeTrue)
			})
		})

		Convey("When two teams share a feed id", func() {
			data := validData()
			data.Teams[1].FeedID = data.Teams[0].FeedID
			_, err := reference.New(data)

			So(errors.Is(err, reference.ErrInvalidReference), ShouldBeTrue)
		})

		Convey("When a row fails field validation", func() {
			data := validData()
			data.Teams[0].Color = "navy"
			_, err := reference.New(data)

			So(errors.Is(err, reference.ErrInvalidReference), ShouldBeTrue)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a reference file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "league.yaml")
		content := `
divisions: [Central]
outcome_types:
  - { id: 10, name: Regulation }
  - { id: 11, name: Overtime }
  - { id: 12, name: Shootout }
teams:
  - { id: 7, feed_id: 25, abbrev: DAL, color: "#006847", division: Central }
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		store, err := reference.Load(context.Background(), path)

		Convey("Then it should replace the built-in table", func() {
			So(err, ShouldBeNil)
			So(store.Teams(), ShouldHaveLength, 1)
			id, err := store.OutcomeTypeID(model.OutcomeOvertime)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, 11)
		})

		Convey("Then a missing file should fail", func() {
			_, err := reference.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
			So(errors.Is(err, reference.ErrInvalidReference), ShouldBeTrue)
		})
	})
}
