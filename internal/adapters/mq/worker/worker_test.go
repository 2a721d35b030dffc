package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	feed "github.com/okian/hockeyplots/internal/adapters/feed"
	queue "github.com/okian/hockeyplots/internal/adapters/mq/queue"
	worker "github.com/okian/hockeyplots/internal/adapters/mq/worker"
	model "github.com/okian/hockeyplots/internal/domain/model"
	logging "github.com/okian/hockeyplots/pkg/logger"
)

func init() {
	_ = logging.Init()
}

// Mock implementations for testing.
type mockFetcher struct {
	mu       sync.Mutex
	requests []feed.Request
	err      error
	release  chan struct{}
}

func (m *mockFetcher) FetchSeason(ctx context.Context, req feed.Request) (*model.Batch, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	release, err := m.release, m.err
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &model.Batch{ID: uuid.New(), RequestID: req.ID, Season: req.Season}, nil
}

func (m *mockFetcher) seen() []feed.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feed.Request(nil), m.requests...)
}

var teams = []model.Team{{ID: 16, FeedID: 10, Abbrev: "TOR"}}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestFetchWorker(t *testing.T) {
	convey.Convey("Given a fetch worker and a handoff queue", t, func() {
		fetcher := &mockFetcher{}
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		w := worker.NewFetchWorker(fetcher, q, teams, "20232024", worker.WithName("test"))

		convey.Convey("When a refresh is triggered", func() {
			id, err := w.Trigger(true)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the batch arrives tagged with the request id", func() {
				convey.So(waitFor(func() bool { return q.Len() == 1 }), convey.ShouldBeTrue)
				b, ok := q.TryDequeue()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(b.RequestID, convey.ShouldEqual, id)

				reqs := fetcher.seen()
				convey.So(reqs, convey.ShouldHaveLength, 1)
				convey.So(reqs[0].Force, convey.ShouldBeTrue)
				convey.So(reqs[0].Season, convey.ShouldEqual, "20232024")
				convey.So(waitFor(func() bool { return w.Stats().Delivered == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the handoff is full", func() {
			convey.So(q.Enqueue(context.Background(), &model.Batch{ID: uuid.New()}), convey.ShouldBeTrue)
			_, err := w.Trigger(false)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the fetched batch is dropped", func() {
				convey.So(waitFor(func() bool { return w.Stats().Dropped == 1 }), convey.ShouldBeTrue)
				convey.So(q.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the fetch fails", func() {
			fetcher.err = errors.New("connection reset")
			_, err := w.Trigger(false)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then nothing is handed off", func() {
				convey.So(waitFor(func() bool { return w.Stats().Failed == 1 }), convey.ShouldBeTrue)
				convey.So(q.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When fetches overlap", func() {
			fetcher.release = make(chan struct{})
			_, _ = w.Trigger(false)
			_, _ = w.Trigger(false)

			convey.Convey("Then both run concurrently", func() {
				convey.So(waitFor(func() bool { return w.InFlight() == 2 }), convey.ShouldBeTrue)
				close(fetcher.release)
				convey.So(waitFor(func() bool { return w.InFlight() == 0 }), convey.ShouldBeTrue)
				convey.So(w.Stats().Triggered, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)

			convey.Convey("Then new triggers are refused", func() {
				_, err := w.Trigger(false)
				convey.So(errors.Is(err, worker.ErrStopped), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutdown outlasts a hung fetch", func() {
			fetcher.release = make(chan struct{})
			_, _ = w.Trigger(false)
			convey.So(waitFor(func() bool { return w.InFlight() == 1 }), convey.ShouldBeTrue)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then the fetch is cancelled and a timeout reported", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(w.InFlight(), convey.ShouldEqual, 0)
			})
		})
	})
}

type countingTrigger struct {
	n atomic.Int32
}

func (c *countingTrigger) Trigger(force bool) (uuid.UUID, error) {
	c.n.Add(1)
	return uuid.New(), nil
}

func TestScheduler(t *testing.T) {
	convey.Convey("Given a refresh schedule", t, func() {
		trig := &countingTrigger{}

		convey.Convey("When the schedule is invalid", func() {
			_, err := worker.NewScheduler("every tuesday", trig)

			convey.Convey("Then construction fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the schedule fires every second", func() {
			s, err := worker.NewScheduler("@every 1s", trig)
			convey.So(err, convey.ShouldBeNil)
			s.Start()

			convey.Convey("Then refreshes are triggered until stopped", func() {
				convey.So(waitFor(func() bool { return trig.n.Load() >= 1 }), convey.ShouldBeTrue)
				convey.So(s.Stop(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
