package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hockeyplots/internal/adapters/repository"
	"github.com/okian/hockeyplots/internal/domain/model"
	logging "github.com/okian/hockeyplots/pkg/logger"
)

func init() {
	_ = logging.Init()
}

func openTestLedger(t *testing.T) *repository.PostgresStore {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	schema := fmt.Sprintf("ledger_test_%d", os.Getpid())
	if _, err := pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+schema+` CASCADE; CREATE SCHEMA `+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DROP SCHEMA IF EXISTS `+schema+` CASCADE`) })

	cfg := pool.Config()
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	scoped, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect scoped: %v", err)
	}
	t.Cleanup(scoped.Close)

	s := repository.NewPostgresStore(scoped)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestPostgresStore(t *testing.T) {
	s := openTestLedger(t)

	Convey("Given a migrated PostgreSQL ledger", t, func() {
		ctx := context.Background()
		So(s.SyncReference(ctx, testTeams, testTypes), ShouldBeNil)

		Convey("Then migrations and reference sync should be repeatable", func() {
			So(s.Migrate(ctx), ShouldBeNil)
			So(s.SyncReference(ctx, testTeams, testTypes), ShouldBeNil)
			types, err := s.OutcomeTypes(ctx)
			So(err, ShouldBeNil)
			So(types, ShouldResemble, testTypes)
		})

		Convey("When a scored game is written in one transaction", func() {
			id, err := s.InsertScoredGame(ctx,
				model.GameRecord{ExternalID: 2023020001, Home: 1, Away: 2, StartTime: day},
				model.ScoreRecord{Home: 5, Away: 4, OutcomeTypeID: 2})
			So(err, ShouldBeNil)

			Convey("Then it should read back through the view", func() {
				v, err := repository.LoadView(ctx, s)
				So(err, ShouldBeNil)
				tor := v.Matchups(1)
				So(tor, ShouldNotBeEmpty)
				last := tor[len(tor)-1]
				So(last.GameID, ShouldEqual, 2023020001)
				So(last.Final.Outcome, ShouldEqual, model.OutcomeOvertime)

				known, err := s.KnownGames(ctx)
				So(err, ShouldBeNil)
				So(known[2023020001], ShouldBeTrue)
				So(id, ShouldBeGreaterThan, 0)

				err = s.InsertGame(ctx, model.GameRecord{ExternalID: 2023020001, Home: 1, Away: 2, StartTime: day})
				So(errors.Is(err, repository.ErrDuplicateGame), ShouldBeTrue)
			})
		})

		Convey("When a pending game is scored later", func() {
			So(s.InsertGame(ctx, model.GameRecord{ExternalID: 2023020500, Home: 3, Away: 1, StartTime: day}), ShouldBeNil)
			_, err := s.AttachNewScore(ctx, 2023020500, model.ScoreRecord{Home: 1, Away: 2, OutcomeTypeID: 3})
			So(err, ShouldBeNil)

			Convey("Then a second score should be refused", func() {
				_, err := s.AttachNewScore(ctx, 2023020500, model.ScoreRecord{Home: 0, Away: 0, OutcomeTypeID: 1})
				So(errors.Is(err, repository.ErrAlreadyScored), ShouldBeTrue)
			})
		})

		Convey("When attaching to an unknown game", func() {
			_, err := s.AttachNewScore(ctx, 1, model.ScoreRecord{Home: 1, Away: 0, OutcomeTypeID: 1})
			So(errors.Is(err, repository.ErrGameNotFound), ShouldBeTrue)
		})
	})
}
