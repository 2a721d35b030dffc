package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hockeyplots/internal/adapters/feed"
	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/logger"
	"github.com/okian/hockeyplots/pkg/metrics"
)

const defaultFetchTimeout = 2 * time.Minute

// Fetcher retrieves a full season batch.
type Fetcher interface {
	FetchSeason(ctx context.Context, req feed.Request) (*model.Batch, error)
}

// Queue receives fetched batches without blocking.
type Queue interface {
	Enqueue(ctx context.Context, b *model.Batch) bool
}

// Stats is a snapshot of worker counters.
type Stats struct {
	InFlight  int64
	Triggered int64
	Delivered int64
	Failed    int64
	Dropped   int64
}

// FetchWorker starts one goroutine per refresh request. Fetches may
// overlap; each result is handed to the queue or dropped.
type FetchWorker struct {
	fetcher Fetcher
	queue   Queue
	teams   []model.Team
	season  string
	timeout time.Duration
	name    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool

	inFlight  atomic.Int64
	triggered atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	logger logger.Logger
}

// NewFetchWorker creates a worker that fetches season for teams.
func NewFetchWorker(fetcher Fetcher, queue Queue, teams []model.Team, season string, opts ...Option) *FetchWorker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &FetchWorker{
		fetcher: fetcher,
		queue:   queue,
		teams:   teams,
		season:  season,
		timeout: defaultFetchTimeout,
		name:    "fetcher",
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "fetcher" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Trigger starts a background fetch and returns its request id.
func (w *FetchWorker) Trigger(force bool) (uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return uuid.Nil, ErrStopped
	}

	id := uuid.New()
	w.triggered.Add(1)
	metrics.UpdateFetchesInFlight(w.inFlight.Add(1))
	w.wg.Add(1)
	go w.run(id, force)
	return id, nil
}

func (w *FetchWorker) run(id uuid.UUID, force bool) {
	defer w.wg.Done()
	defer func() { metrics.UpdateFetchesInFlight(w.inFlight.Add(-1)) }()

	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	start := time.Now()
	b, err := w.fetcher.FetchSeason(ctx, feed.Request{ID: id, Season: w.season, Teams: w.teams, Force: force})
	if err != nil {
		w.failed.Add(1)
		metrics.RecordFetch("failed")
		metrics.RecordErrorByComponent("worker", "fetch_failed")
		w.logger.Error(ctx, "season fetch failed, dropping",
			logger.String("request_id", id.String()),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return
	}

	if !w.queue.Enqueue(ctx, b) {
		w.dropped.Add(1)
		metrics.RecordFetch("dropped")
		metrics.RecordBatchDropped("handoff_unavailable")
		w.logger.Warn(ctx, "handoff full or closed, dropping batch",
			logger.String("request_id", id.String()),
			logger.String("batch_id", b.ID.String()))
		return
	}

	w.delivered.Add(1)
	metrics.RecordFetch("delivered")
	w.logger.Debug(ctx, "season fetched",
		logger.String("request_id", id.String()),
		logger.String("batch_id", b.ID.String()),
		logger.Int("games", b.Size()),
		logger.Duration("elapsed", time.Since(start)))
}

// InFlight returns the number of running fetches.
func (w *FetchWorker) InFlight() int64 { return w.inFlight.Load() }

// Stats returns a snapshot of the worker counters.
func (w *FetchWorker) Stats() Stats {
	return Stats{
		InFlight:  w.inFlight.Load(),
		Triggered: w.triggered.Load(),
		Delivered: w.delivered.Load(),
		Failed:    w.failed.Load(),
		Dropped:   w.dropped.Load(),
	}
}

// Shutdown refuses new triggers and waits for running fetches. When ctx
// expires first the remaining fetches are cancelled.
func (w *FetchWorker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-done
		w.logger.Warn(ctx, "shutdown timed out, in-flight fetches cancelled")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
