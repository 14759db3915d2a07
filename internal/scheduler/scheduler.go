package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic maintenance jobs: quick scans, full scans
// and the missing-thumbnail sweep. Intervals of zero disable a job.
type Scheduler struct {
	c *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{c: cron.New()}
}

// Every registers fn to run on a fixed interval. Interval <= 0 disables it.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) {
	if interval <= 0 {
		log.Printf("Sched: %s disabled", name)
		return
	}
	s.c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		start := time.Now()
		fn()
		log.Printf("Sched: %s finished in %s", name, time.Since(start).Round(time.Millisecond))
	}))
	log.Printf("Sched: %s every %s", name, interval)
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		log.Println("Sched: jobs still running at shutdown, abandoning")
	}
}

// Minutes and Hours are small helpers so wiring code reads like the
// config it comes from.
func Minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
func Hours(n int) time.Duration   { return time.Duration(n) * time.Hour }
