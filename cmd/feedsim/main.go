// Command feedsim serves a synthetic season in the schedule API's shape so
// the service can run without the public feed.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/hockeyplots/internal/domain/reference"
	"github.com/okian/hockeyplots/internal/feedsim"
	"github.com/okian/hockeyplots/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr     = ":9090"
	defaultSeed     = 1
	defaultPlayed   = 20
	shutdownTimeout = 5 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", defaultAddr, "Listen address")
		seed      = flag.Uint64("seed", defaultSeed, "Random seed for the generated season")
		season    = flag.String("season", "20232024", "Season key served")
		rounds    = flag.Int("rounds", feedsim.DefaultRounds, "Regular season rounds")
		played    = flag.Int("played", defaultPlayed, "Rounds with results at startup")
		preseason = flag.Int("preseason", feedsim.DefaultPreseasonRounds, "Preseason rounds before opening night")
		refFile   = flag.String("reference", "", "Team reference YAML (default: built-in table)")
		advance   = flag.Duration("advance-every", 0, "Reveal one more round on this interval (0 disables)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("feedsim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ref, err := reference.Load(ctx, *refFile)
	if err != nil {
		log.Error(ctx, "loading reference", logger.Error(err))
		os.Exit(1)
	}

	s := feedsim.Generate(feedsim.Config{
		Seed:            *seed,
		Season:          *season,
		Teams:           ref.Teams(),
		Rounds:          *rounds,
		Played:          *played,
		PreseasonRounds: *preseason,
		Opening:         time.Date(2023, 10, 10, 23, 0, 0, 0, time.UTC),
	})

	if *advance > 0 {
		go func() {
			ticker := time.NewTicker(*advance)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Info(ctx, "round revealed", logger.Int("played", s.Advance(1)))
				}
			}
		}()
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           feedsim.NewHandler(s).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "serving synthetic season",
		logger.String("addr", *addr),
		logger.String("season", *season),
		logger.Int("played", s.Played()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "feedsim server failed", logger.Error(err))
		os.Exit(1)
	}
}
