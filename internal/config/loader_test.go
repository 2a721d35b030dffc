package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/hockeyplots/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Season, convey.ShouldEqual, "20232024")
				convey.So(cfg.FeedTimeout, convey.ShouldEqual, 10*time.Second)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HOCKEYPLOTS_ADDR", ":8080")
			_ = os.Setenv("HOCKEYPLOTS_SEASON", "20242025")
			_ = os.Setenv("HOCKEYPLOTS_BASELINE_POINTS_PER_GAME", "1.2")
			_ = os.Setenv("HOCKEYPLOTS_FEED_TIMEOUT", "3s")
			_ = os.Setenv("HOCKEYPLOTS_INDEX_POLICY", "schedule")
			_ = os.Setenv("HOCKEYPLOTS_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Season, convey.ShouldEqual, "20242025")
				convey.So(cfg.BaselinePointsPerGame, convey.ShouldEqual, 1.2)
				convey.So(cfg.FeedTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.IndexPolicy, convey.ShouldEqual, config.IndexSchedule)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"http://a.test", "http://b.test"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
ledger_driver: postgres
postgres_url: postgres://hockey@localhost/hockey
frame_interval: 250ms
refresh_schedule: "0 */6 * * *"
derive_from: fetch
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HOCKEYPLOTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LedgerDriver, convey.ShouldEqual, config.LedgerPostgres)
				convey.So(cfg.FrameInterval, convey.ShouldEqual, 250*time.Millisecond)
				convey.So(cfg.RefreshSchedule, convey.ShouldEqual, "0 */6 * * *")
				convey.So(cfg.DeriveFrom, convey.ShouldEqual, config.DeriveFromFetch)
				convey.So(cfg.Season, convey.ShouldEqual, "20232024") // default
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
feed_concurrency: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HOCKEYPLOTS_CONFIG", tmpFile)
			_ = os.Setenv("HOCKEYPLOTS_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")      // env
				convey.So(cfg.FeedConcurrency, convey.ShouldEqual, 4) // file
			})
		})

		convey.Convey("When the ledger is configured insert-only", func() {
			_ = os.Setenv("HOCKEYPLOTS_SCORE_BACKFILL", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then score backfill should be off", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ScoreBackfill, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HOCKEYPLOTS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HOCKEYPLOTS_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the layered result does not validate", func() {
			_ = os.Setenv("HOCKEYPLOTS_LEDGER_DRIVER", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres_url")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HOCKEYPLOTS_") {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "hockeyplots-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
