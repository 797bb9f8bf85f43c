package watcher

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a job on a cron spec ("0 * * * *", "@every 30m", ...).
type Scheduler struct {
	c        *cron.Cron
	schedule cron.Schedule
}

func NewScheduler(spec string, job func()) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(job))

	return &Scheduler{c: c, schedule: schedule}, nil
}

// Next returns the first run time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop stops scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
