// Package scheduler runs periodic background jobs such as reloading the
// visible month and re-capturing the calendar snapshot.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "monthcal/internal/log"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 2 * time.Minute

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	// base is the context jobs derive from. It is cancelled by Run's ctx.
	base context.Context
}

// New creates a Scheduler evaluating schedules in loc. A nil loc means
// time.Local.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		timeout: DefaultJobTimeout,
		base:    context.Background(),
	}
}

// Add registers job under a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(name, job)); err != nil {
		return fmt.Errorf("add %s job %q: %w", name, spec, err)
	}
	appLog.Info("scheduled job", "job", name, "spec", spec)
	return nil
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.base = ctx
	s.cron.Start()
	appLog.Info("scheduler started", "jobs", s.Len())

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	appLog.Info("scheduler stopped")
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.base, s.timeout)
		defer cancel()

		began := time.Now()
		if err := job(ctx); err != nil {
			appLog.Error("scheduled job failed", err, "job", name)
			return
		}
		appLog.Debug("scheduled job done", "job", name, "elapsed", time.Since(began).String())
	}
}
