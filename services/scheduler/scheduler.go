package schedulersvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/educonnectpro/educonnect/core"
)

const (
	JobMarkOverdueFees     = "mark_overdue_fees"
	JobExpireStaleBookings = "expire_stale_bookings"
)

type (
	FeeMaintainer interface {
		MarkOverdue(ctx context.Context, now time.Time) (int, error)
	}

	BookingMaintainer interface {
		ExpireStale(ctx context.Context, now time.Time) (int, error)
	}

	JobObserver interface {
		ObserveJob(job string, ok bool)
	}

	// Scheduler runs the periodic maintenance jobs in UTC.
	Scheduler struct {
		cron     *cron.Cron
		fees     FeeMaintainer
		bookings BookingMaintainer
		observer JobObserver
		logger   core.Logger
		now      func() time.Time
	}
)

func NewScheduler(fees FeeMaintainer, bookings BookingMaintainer, observer JobObserver, logger core.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		fees:     fees,
		bookings: bookings,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the cron loop. Jobs use `ctx` for their work.
func (s *Scheduler) Start(ctx context.Context) error {
	// daily, shortly after midnight
	if _, err := s.cron.AddFunc("10 0 * * *", func() { s.Run(ctx, JobMarkOverdueFees) }); err != nil {
		return errors.Wrap(err, "cron.AddFunc("+JobMarkOverdueFees+")")
	}
	if _, err := s.cron.AddFunc("0 * * * *", func() { s.Run(ctx, JobExpireStaleBookings) }); err != nil {
		return errors.Wrap(err, "cron.AddFunc("+JobExpireStaleBookings+")")
	}
	s.cron.Start()
	s.logger.Info(fmt.Sprintf("scheduler started: %d jobs", len(s.cron.Entries())))
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Run executes a single job synchronously.
func (s *Scheduler) Run(ctx context.Context, job string) {
	var (
		n   int
		err error
	)
	now := s.now().UTC()
	switch job {
	case JobMarkOverdueFees:
		n, err = s.fees.MarkOverdue(ctx, now)
	case JobExpireStaleBookings:
		n, err = s.bookings.ExpireStale(ctx, now)
	default:
		s.logger.Warn("unknown job: " + job)
		return
	}

	if s.observer != nil {
		s.observer.ObserveJob(job, err == nil)
	}
	if err != nil {
		s.logger.Error(fmt.Sprintf("job %s failed: %v", job, err), err, map[string]interface{}{"job": job})
		return
	}
	s.logger.Info(fmt.Sprintf("job %s done: %d updated", job, n), map[string]interface{}{"job": job, "updated": n})
}
