package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hockeyplots/internal/adapters/cache"
	"github.com/okian/hockeyplots/internal/adapters/feed"
	"github.com/okian/hockeyplots/internal/adapters/http/api"
	"github.com/okian/hockeyplots/internal/adapters/repository"
	service "github.com/okian/hockeyplots/internal/app"
	"github.com/okian/hockeyplots/internal/config"
	"github.com/okian/hockeyplots/internal/domain/points"
	"github.com/okian/hockeyplots/internal/domain/reference"
	"github.com/okian/hockeyplots/pkg/logger"
	"github.com/okian/hockeyplots/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := configureLogging(cfg); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "hockeyplots stopped with error", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) error {
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	if err := logger.InitWith(os.Stdout, format); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run wires the pipeline and blocks until ctx is cancelled or the
// foreground loop hits a fatal error.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get().Named("main")

	svc, feedCache, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	if feedCache != nil {
		defer func() {
			if err := feedCache.Close(); err != nil {
				log.Warn(context.Background(), "closing feed cache", logger.Error(err))
			}
		}()
	}
	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	server := api.NewServer(svc, svc, api.WithAllowedOrigins(cfg.CORSAllowedOrigins))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// buildService assembles the ledger, reference table, feed client and
// service from configuration. Nothing is started. The service owns the
// ledger; the caller closes the returned cache, which may be nil.
func buildService(ctx context.Context, cfg *config.Config) (*service.Service, cache.Cache, error) {
	ref, err := reference.Load(ctx, cfg.ReferenceFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load reference: %w", err)
	}
	policy, err := points.ParseIndexPolicy(cfg.IndexPolicy)
	if err != nil {
		return nil, nil, err
	}

	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	feedCache, err := openCache(ctx, cfg)
	if err != nil {
		_ = ledger.Close()
		return nil, nil, err
	}

	feedOpts := []feed.Option{
		feed.WithHTTPClient(&http.Client{Timeout: cfg.FeedTimeout}),
		feed.WithRateLimit(cfg.FeedRatePerSecond, cfg.FeedBurst),
		feed.WithConcurrency(cfg.FeedConcurrency),
		feed.WithUserAgent(cfg.FeedUserAgent),
	}
	if feedCache != nil {
		feedOpts = append(feedOpts, feed.WithCache(feedCache))
	}

	svc := service.New(
		service.WithLedger(ledger),
		service.WithReference(ref),
		service.WithFetcher(feed.New(cfg.FeedBaseURL, feedOpts...)),
		service.WithSeason(cfg.Season),
		service.WithFrameInterval(cfg.FrameInterval),
		service.WithFetchTimeout(cfg.FetchTimeout),
		service.WithHandoffCapacity(cfg.HandoffCapacity),
		service.WithBaseline(cfg.BaselinePointsPerGame),
		service.WithIndexPolicy(policy),
		service.WithDeriveFrom(service.Source(cfg.DeriveFrom)),
		service.WithScoreBackfill(cfg.ScoreBackfill),
		service.WithRefreshSchedule(cfg.RefreshSchedule),
		service.WithRefreshOnStart(cfg.RefreshOnStart),
		service.WithLogger(logger.Get().Named("service")),
	)
	return svc, feedCache, nil
}

func openLedger(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.LedgerDriver {
	case config.LedgerPostgres:
		s, err := repository.OpenPostgres(ctx, cfg.PostgresURL,
			repository.WithPostgresLogger(logger.Get().Named("postgres")))
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return s, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

// openCache returns nil when feed caching is off.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.FeedCache {
	case config.CacheFile:
		c, err := cache.NewFile(cfg.FeedCacheDir, cfg.FeedCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		return c, nil
	case config.CacheRedis:
		c, err := cache.OpenRedis(ctx, cfg.RedisURL, cfg.FeedCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}

// startSystemMetricsUpdater samples runtime stats until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	if !metrics.Enabled() {
		return
	}
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateSystemStats()
		}
	}
}
