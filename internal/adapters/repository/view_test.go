package repository_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hockeyplots/internal/adapters/repository"
	"github.com/okian/hockeyplots/internal/domain/model"
)

func TestLoadView(t *testing.T) {
	Convey("Given a ledger with scored and pending games", t, func() {
		ctx := context.Background()
		s := newSyncedStore()

		_, err := s.InsertScoredGame(ctx,
			model.GameRecord{ExternalID: 1, Home: 1, Away: 2, StartTime: day},
			model.ScoreRecord{Home: 4, Away: 2, OutcomeTypeID: 1})
		So(err, ShouldBeNil)
		So(s.InsertGame(ctx, model.GameRecord{ExternalID: 2, Home: 2, Away: 3, StartTime: day.AddDate(0, 0, 1)}), ShouldBeNil)

		v, err := repository.LoadView(ctx, s)
		So(err, ShouldBeNil)

		Convey("Then each team should see its own games in order", func() {
			So(v.Games(), ShouldEqual, 2)
			So(v.Pending(), ShouldEqual, 1)

			mtl := v.Matchups(2)
			So(mtl, ShouldHaveLength, 2)
			So(mtl[0].Final, ShouldResemble, &model.FinalScore{Home: 4, Away: 2, Outcome: model.OutcomeRegulation})
			So(mtl[1].Final, ShouldBeNil)

			So(v.Matchups(1), ShouldHaveLength, 1)
			So(v.Matchups(42), ShouldBeEmpty)
		})
	})

	Convey("Given seeded history with a game listing one team on both sides", t, func() {
		ctx := context.Background()
		sid := model.ScoreID(1)
		s := repository.NewMemoryStore(repository.WithSeedGames(
			[]model.GameRecord{{ExternalID: 1, Home: 1, Away: 1, ScoreID: &sid, StartTime: day}},
			[]model.ScoreRecord{{ID: 1, Home: 3, Away: 1, OutcomeTypeID: 1}},
		))
		So(s.SyncReference(ctx, testTeams, testTypes), ShouldBeNil)

		v, err := repository.LoadView(ctx, s)
		So(err, ShouldBeNil)

		Convey("Then the team should see the game once", func() {
			So(v.Matchups(1), ShouldHaveLength, 1)
		})
	})

	Convey("Given a ledger whose outcome definitions are unrecognised", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()
		So(s.SyncReference(ctx, testTeams, []model.OutcomeType{{ID: 1, Name: "Forfeit"}}), ShouldBeNil)

		_, err := repository.LoadView(ctx, s)

		Convey("Then loading should fail with ErrUnknownOutcome", func() {
			So(errors.Is(err, model.ErrUnknownOutcome), ShouldBeTrue)
		})
	})

	Convey("Given a score whose outcome type has no definition row", t, func() {
		ctx := context.Background()
		sid := model.ScoreID(1)
		s := repository.NewMemoryStore(repository.WithSeedGames(
			[]model.GameRecord{{ExternalID: 1, Home: 1, Away: 2, ScoreID: &sid}},
			[]model.ScoreRecord{{ID: 1, Home: 2, Away: 1, OutcomeTypeID: 4}},
		))
		So(s.SyncReference(ctx, testTeams, testTypes), ShouldBeNil)

		_, err := repository.LoadView(ctx, s)

		Convey("Then loading should fail with ErrUnknownOutcome", func() {
			So(errors.Is(err, model.ErrUnknownOutcome), ShouldBeTrue)
		})
	})
}
