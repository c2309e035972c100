package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Schedule struct {
	Reminders string
	Sync      string
}

type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the runner's jobs. Specs use the standard five-field
// cron format, evaluated in UTC. An empty spec disables that job.
func NewScheduler(runner *Runner, schedule Schedule) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	register := func(name, spec string, fn func()) error {
		if spec == "" {
			log.Info().Str("job", name).Msg("job disabled")
			return nil
		}
		if _, err := c.AddFunc(spec, fn); err != nil {
			return fmt.Errorf("register %s job: %w", name, err)
		}
		log.Info().Str("job", name).Str("spec", spec).Msg("job registered")
		return nil
	}

	if err := register(JobReminders, schedule.Reminders, runner.SendReminders); err != nil {
		return nil, err
	}
	if err := register(JobSync, schedule.Sync, runner.SyncReservations); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
