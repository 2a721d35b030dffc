// Package feed fetches team season schedules from the public schedule API.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/okian/hockeyplots/internal/adapters/cache"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/logger"
	"github.com/okian/hockeyplots/pkg/metrics"
)

const maxBodyBytes = 8 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request describes one season fetch.
type Request struct {
	ID     uuid.UUID
	Season string
	Teams  []model.Team
	// Force skips the cache.
	Force bool
}

// Client talks to the schedule API.
type Client struct {
	base        string
	http        *http.Client
	limiter     *rate.Limiter
	concurrency int
	cache       cache.Cache
	userAgent   string
	logger      logger.Logger
}

// New creates a client for baseURL, e.g. https://api-web.nhle.com/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:        strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Inf, 0),
		concurrency: 8,
		userAgent:   "hockeyplots/1.0",
		logger:      logger.Get().Named("feed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSeason fetches every team's schedule. Any failure cancels the rest
// and fails the whole batch.
func (c *Client) FetchSeason(ctx context.Context, req Request) (*model.Batch, error) {
	if len(req.Teams) == 0 {
		return nil, ErrNoTeams
	}

	schedules := make([]model.Schedule, len(req.Teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, team := range req.Teams {
		g.Go(func() error {
			s, err := c.FetchSchedule(gctx, team.Abbrev, req.Season, req.Force)
			if err != nil {
				return fmt.Errorf("%s: %w", team.Abbrev, err)
			}
			schedules[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &model.Batch{
		ID:        uuid.New(),
		RequestID: req.ID,
		FetchedAt: time.Now().UTC(),
		Season:    req.Season,
		Order:     make([]model.FeedTeamID, len(req.Teams)),
		Schedules: make(map[model.FeedTeamID]model.Schedule, len(req.Teams)),
	}
	for i, team := range req.Teams {
		b.Order[i] = team.FeedID
		b.Schedules[team.FeedID] = schedules[i]
	}
	return b, nil
}

// FetchSchedule fetches one team's season schedule.
func (c *Client) FetchSchedule(ctx context.Context, abbrev, season string, force bool) (model.Schedule, error) {
	key := abbrev + "/" + season

	if c.cache != nil && !force {
		body, ok, err := c.cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.RecordFeedCacheLookup("error")
			c.logger.Warn(ctx, "cache read failed", logger.String("key", key), logger.Error(err))
		case ok:
			var s model.Schedule
			if err := json.Unmarshal(body, &s); err == nil {
				metrics.RecordFeedCacheLookup("hit")
				return s, nil
			}
			metrics.RecordFeedCacheLookup("corrupt")
		default:
			metrics.RecordFeedCacheLookup("miss")
		}
	} else if c.cache != nil {
		metrics.RecordFeedCacheLookup("bypass")
	}

	body, err := c.get(ctx, c.base+"/club-schedule-season/"+abbrev+"/"+season)
	if err != nil {
		return model.Schedule{}, err
	}
	var s model.Schedule
	if err := json.Unmarshal(body, &s); err != nil {
		return model.Schedule{}, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.logger.Warn(ctx, "cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return s, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordFeedRequest("error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordFeedRequest(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
