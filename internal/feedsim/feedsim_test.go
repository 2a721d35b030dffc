package feedsim_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hockeyplots/internal/adapters/feed"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/reference"
	"github.com/okian/hockeyplots/internal/feedsim"
	logging "github.com/okian/hockeyplots/pkg/logger"
)

func init() {
	_ = logging.Init()
}

func leagueTeams() []model.Team {
	ref, err := reference.Default()
	So(err, ShouldBeNil)
	return ref.Teams()
}

func TestGenerate(t *testing.T) {
	Convey("Given a generated season", t, func() {
		teams := leagueTeams()
		cfg := feedsim.Config{Seed: 7, Teams: teams, Rounds: 10, Played: 4}
		season := feedsim.Generate(cfg)

		Convey("Then every team plays each round and results stop at the played mark", func() {
			s, ok := season.Schedule("TOR", "20232024")
			So(ok, ShouldBeTrue)
			So(s.Games, ShouldHaveLength, 10+feedsim.DefaultPreseasonRounds)

			regular, final := 0, 0
			for _, g := range s.Games {
				if g.Category() != model.CategoryRegularSeason {
					So(g.Final(), ShouldBeTrue)
					continue
				}
				regular++
				if g.Final() {
					final++
					h, a, err := g.Tallies()
					So(err, ShouldBeNil)
					So(h, ShouldNotEqual, a)
					if g.GameOutcome.LastPeriodType != "REG" {
						So(h-a == 1 || a-h == 1, ShouldBeTrue)
					}
				}
			}
			So(regular, ShouldEqual, 10)
			So(final, ShouldEqual, 4)
		})

		Convey("Then the same seed produces the same season", func() {
			again := feedsim.Generate(cfg)
			a, _ := season.Schedule("MTL", "20232024")
			b, _ := again.Schedule("MTL", "20232024")
			So(b, ShouldResemble, a)
		})

		Convey("Then both teams see a game under the same id", func() {
			s, _ := season.Schedule("TOR", "20232024")
			g := s.Games[len(s.Games)-1]
			opp := g.HomeTeam.Abbrev
			if opp == "TOR" {
				opp = g.AwayTeam.Abbrev
			}
			other, _ := season.Schedule(opp, "20232024")
			var found bool
			for _, og := range other.Games {
				found = found || og.ID == g.ID
			}
			So(found, ShouldBeTrue)
		})

		Convey("When the season advances", func() {
			So(season.Advance(3), ShouldEqual, 7)
			So(season.Advance(100), ShouldEqual, 10)

			Convey("Then every regular game is final", func() {
				s, _ := season.Schedule("BOS", "20232024")
				for _, g := range s.Games {
					So(g.Final(), ShouldBeTrue)
				}
			})
		})

		Convey("Then unknown teams and seasons are not found", func() {
			_, ok := season.Schedule("XXX", "20232024")
			So(ok, ShouldBeFalse)
			_, ok = season.Schedule("TOR", "20222023")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the simulator behind an HTTP server", t, func() {
		ctx := context.Background()
		teams := leagueTeams()
		h := feedsim.NewHandler(feedsim.Generate(feedsim.Config{Seed: 1, Teams: teams, Rounds: 6, Played: 2}))
		srv := httptest.NewServer(h.Routes())
		defer srv.Close()
		client := feed.New(srv.URL)

		Convey("When the feed client fetches the whole league", func() {
			b, err := client.FetchSeason(ctx, feed.Request{Season: "20232024", Teams: teams})

			Convey("Then every team's schedule decodes", func() {
				So(err, ShouldBeNil)
				So(b.Schedules, ShouldHaveLength, len(teams))
				So(h.Requests(), ShouldEqual, len(teams))
			})
		})

		Convey("When failures are injected", func() {
			h.FailNext(1)
			_, err := client.FetchSchedule(ctx, "TOR", "20232024", false)
			_, err2 := client.FetchSchedule(ctx, "TOR", "20232024", false)

			Convey("Then exactly one request fails", func() {
				So(err, ShouldNotBeNil)
				So(err2, ShouldBeNil)
			})
		})

		Convey("When the season is advanced over HTTP", func() {
			resp, err := http.Post(srv.URL+"/admin/advance?rounds=2", "application/json", nil)
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then more results are served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				s, err := client.FetchSchedule(ctx, "TOR", "20232024", false)
				So(err, ShouldBeNil)
				final := 0
				for _, g := range s.Games {
					if g.Category() == model.CategoryRegularSeason && g.Final() {
						final++
					}
				}
				So(final, ShouldEqual, 4)
			})
		})
	})
}
