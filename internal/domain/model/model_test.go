package model_test

import (
	"errors"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const scheduleJSON = `{
  "games": [
    {"id": 2023010001, "gameType": 1, "gameState": "FINAL", "startTimeUTC": "2023-09-24T23:00:00Z",
     "homeTeam": {"id": 1, "abbrev": "NJD", "score": 2}, "awayTeam": {"id": 2, "abbrev": "NYI", "score": 1},
     "gameOutcome": {"lastPeriodType": "REG"}},
    {"id": 2023020005, "gameType": 2, "gameState": "OFF", "startTimeUTC": "2023-10-11T23:00:00Z",
     "homeTeam": {"id": 1, "abbrev": "NJD", "score": 3}, "awayTeam": {"id": 17, "abbrev": "DET", "score": 4},
     "gameOutcome": {"lastPeriodType": "SO"}},
    {"id": 2023020100, "gameType": 2, "gameState": "FUT", "startTimeUTC": "2024-04-18T23:00:00Z",
     "homeTeam": {"id": 3, "abbrev": "NYR"}, "awayTeam": {"id": 1, "abbrev": "NJD"}}
  ]
}`

func TestScheduleDecoding(t *testing.T) {
	convey.Convey("Given a team schedule payload", t, func() {
		var s model.Schedule
		err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(scheduleJSON), &s)
		convey.So(err, convey.ShouldBeNil)
		convey.So(s.Games, convey.ShouldHaveLength, 3)

		convey.Convey("Then categories should follow the game type", func() {
			convey.So(s.Games[0].Category(), convey.ShouldEqual, model.CategoryPreseason)
			convey.So(s.Games[1].Category(), convey.ShouldEqual, model.CategoryRegularSeason)
			convey.So(model.CategoryFromGameType(3), convey.ShouldEqual, model.CategoryOther)
		})

		convey.Convey("Then a decided game should convert to a final matchup", func() {
			m, err := s.Games[1].Matchup()
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Home, convey.ShouldEqual, 1)
			convey.So(m.Away, convey.ShouldEqual, 17)
			convey.So(m.Final, convey.ShouldResemble, &model.FinalScore{Home: 3, Away: 4, Outcome: model.OutcomeShootout})
			convey.So(s.Games[1].StartTimeUTC.Day(), convey.ShouldEqual, 11)
		})

		convey.Convey("Then a future game should have no final score", func() {
			convey.So(s.Games[2].Final(), convey.ShouldBeFalse)
			m, err := s.Games[2].Matchup()
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Final, convey.ShouldBeNil)
		})

		convey.Convey("When a decided game lacks a tally", func() {
			g := s.Games[1]
			g.AwayTeam.Score = nil
			_, err := g.Matchup()

			convey.So(errors.Is(err, model.ErrMissingScore), convey.ShouldBeTrue)
		})

		convey.Convey("When a decided game has an unknown period code", func() {
			g := s.Games[1]
			g.GameOutcome = &model.FeedOutcome{LastPeriodType: "2OT"}
			_, err := g.Matchup()

			convey.So(errors.Is(err, model.ErrUnknownOutcome), convey.ShouldBeTrue)
		})
	})
}

func TestOutcomes(t *testing.T) {
	convey.Convey("Given the closed outcome set", t, func() {
		convey.Convey("Then names and codes should round trip", func() {
			for _, o := range model.Outcomes() {
				byName, err := model.ParseOutcomeName(o.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(byName, convey.ShouldEqual, o)

				byCode, err := model.ParseOutcomeCode(o.Code())
				convey.So(err, convey.ShouldBeNil)
				convey.So(byCode, convey.ShouldEqual, o)
			}
		})

		convey.Convey("Then anything else should be rejected", func() {
			_, err := model.ParseOutcomeName("Unknown")
			convey.So(errors.Is(err, model.ErrUnknownOutcome), convey.ShouldBeTrue)
			_, err = model.ParseOutcomeCode("reg")
			convey.So(errors.Is(err, model.ErrUnknownOutcome), convey.ShouldBeTrue)
			convey.So(model.Outcome(9).Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestTeam(t *testing.T) {
	convey.Convey("Given a team", t, func() {
		team := model.Team{ID: 12, FeedID: 6, Abbrev: "BOS", Color: model.Color{R: 252, G: 181, B: 20}, Division: model.DivisionAtlantic}

		convey.Convey("Then Ref should pick the identifier for the namespace", func() {
			convey.So(team.Ref(model.NamespaceInternal), convey.ShouldEqual, 12)
			convey.So(team.Ref(model.NamespaceFeed), convey.ShouldEqual, 6)
		})

		convey.Convey("Then colors should render and parse as hex", func() {
			convey.So(team.Color.Hex(), convey.ShouldEqual, "#fcb514")
			c, err := model.ParseHexColor("#fcb514")
			convey.So(err, convey.ShouldBeNil)
			convey.So(c, convey.ShouldResemble, team.Color)

			_, err = model.ParseHexColor("fcb514")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then division names should parse case-insensitively", func() {
			d, ok := model.ParseDivision("metropolitan")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(d, convey.ShouldEqual, model.DivisionMetropolitan)

			_, ok = model.ParseDivision("Norris")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}
