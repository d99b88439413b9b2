// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpiredJobCloser deactivates jobs whose deadline is before now.
type ExpiredJobCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
	jobs ExpiredJobCloser
	now  func() time.Time
}

// New registers the job sweep on schedule, a standard cron spec or a
// descriptor such as "@every 1h".
func New(schedule string, jobs ExpiredJobCloser) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		jobs: jobs,
		now:  time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.SweepJobs); err != nil {
		return nil, errors.Wrapf(err, "schedule job sweep %q", schedule)
	}
	return s, nil
}

// SweepJobs closes every active job past its deadline.
func (s *Scheduler) SweepJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.jobs.CloseExpired(ctx, s.now())
	if err != nil {
		zap.S().Errorf("[JobSweep] %v", err)
		return
	}
	zap.S().Debugf("[JobSweep] closed %d expired jobs", n)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
