// Package scheduler implements C11: a minimal job runner for the three
// periodic jobs spec.md §4.11 names (DN42 refresh, stats snapshot, KV TTL
// sweep), each independently cancellable at shutdown.
//
// github.com/robfig/cron/v3 is named in the teacher's go.mod but never
// wired into any teacher source file (the teacher's periodic work ran on
// its own Marble/enclave scheduling, since deleted — see DESIGN.md); this
// is the first concrete consumer, using the library's standard
// cron.New(cron.WithSeconds())-less five-field scheduler.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler wraps a robfig/cron runner. Jobs are added with intervals
// rather than raw cron expressions to keep call sites simple; Start
// translates each into an "@every" spec.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), log: log}
}

// Job is a named unit of periodic work. Run receives a context cancelled
// at shutdown; a well-behaved Job returns promptly when it is.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// AddJob schedules job to run every job.Interval, guarded by ctx for
// cancellation at shutdown. A run that returns an error is logged, not
// retried early; the next scheduled tick runs regardless. The cron
// library's "@every" schedule raises intervals under one second to one
// second and fires on whole-second boundaries.
func (s *Scheduler) AddJob(ctx context.Context, job Job) error {
	_, err := s.cron.AddFunc(every(job.Interval), func() {
		if err := job.Run(ctx); err != nil {
			if s.log != nil {
				s.log.WithError(err).WithField("job", job.Name).Warn("scheduler: job failed")
			}
			return
		}
		if s.log != nil {
			s.log.WithField("job", job.Name).Debug("scheduler: job completed")
		}
	})
	return err
}

func every(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	return "@every " + d.String()
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight job invocations to
// return. It does not cancel the per-job context passed to AddJob — that
// is the caller's responsibility (typically the same ctx the rest of the
// process shuts down on).
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
