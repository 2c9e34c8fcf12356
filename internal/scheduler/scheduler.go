package scheduler

import (
	"fmt"
	"time"

	"github.com/example/quizbot/internal/logger"
	"github.com/go-co-op/gocron"
)

// Scheduler runs the periodic jobs of the bot: the one-second quiz clocks of
// every running session and the housekeeping jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       *logger.Logger
}

// New creates a new scheduler instance
func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       log,
	}
}

// Start begins running all scheduled jobs without blocking
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Every runs fn every interval, starting one interval from now, until the
// returned stop function is called. Stop is safe to call more than once.
func (s *Scheduler) Every(interval time.Duration, fn func()) (func(), error) {
	job, err := s.scheduler.Every(interval).WaitForSchedule().Do(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job every %s: %w", interval, err)
	}
	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		s.scheduler.RemoveByReference(job)
	}, nil
}

// Jobs reports how many jobs are currently scheduled
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

// Maintain registers a housekeeping job that runs every interval for the
// lifetime of the scheduler.
func (s *Scheduler) Maintain(name string, interval time.Duration, fn func()) error {
	_, err := s.scheduler.Every(interval).WaitForSchedule().Tag(name).Do(func() {
		started := time.Now()
		fn()
		s.log.Debug("maintenance job finished", "job", name, "took", time.Since(started).String())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.log.Info("maintenance job registered", "job", name, "interval", interval.String(), "jobs", s.Jobs())
	return nil
}
