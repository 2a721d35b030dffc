package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/okian/hockeyplots/pkg/logger"
)

// Trigger starts a refresh.
type Trigger interface {
	Trigger(force bool) (uuid.UUID, error)
}

// Scheduler triggers unforced refreshes on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
	logger  logger.Logger
}

// NewScheduler parses spec (standard five-field cron or descriptors such
// as @every 15m) and binds it to t.
func NewScheduler(spec string, t Trigger, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		trigger: t,
		logger:  logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) fire() {
	ctx := context.Background()
	id, err := s.trigger.Trigger(false)
	if err != nil {
		s.logger.Warn(ctx, "scheduled refresh not started", logger.Error(err))
		return
	}
	s.logger.Info(ctx, "scheduled refresh started", logger.String("request_id", id.String()))
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running trigger call to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
