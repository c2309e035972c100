package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/service"
)

const (
	JobReminders = "reminders"
	JobSync      = "sync"
)

type ReminderSender interface {
	SendReminders(ctx context.Context, daysAhead int) (service.ReminderReport, error)
}

type ReservationSweeper interface {
	SweepOpenReservations(ctx context.Context) (service.SweepReport, error)
}

// Runner executes the periodic credit jobs. Every job is bounded by Timeout
// and a panic inside one never takes the process down.
type Runner struct {
	reminders ReminderSender
	sweeper   ReservationSweeper
	daysAhead int
	Timeout   time.Duration
}

func NewRunner(reminders ReminderSender, sweeper ReservationSweeper, daysAhead int) *Runner {
	return &Runner{
		reminders: reminders,
		sweeper:   sweeper,
		daysAhead: daysAhead,
		Timeout:   10 * time.Minute,
	}
}

func (r *Runner) SendReminders() {
	r.runWithRecovery(JobReminders, func(ctx context.Context) error {
		report, err := r.reminders.SendReminders(ctx, r.daysAhead)
		if err != nil {
			return err
		}
		log.Info().
			Int("upcoming", report.Upcoming).
			Int("sent", report.Sent).
			Int("failed", report.Failed).
			Msg("payment reminders dispatched")
		return nil
	})
}

func (r *Runner) SyncReservations() {
	r.runWithRecovery(JobSync, func(ctx context.Context) error {
		report, err := r.sweeper.SweepOpenReservations(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Int("checked", report.Checked).
			Int("updated", report.Updated).
			Int("failed", report.Failed).
			Msg("open reservations synced")
		return nil
	})
}

// RunOnce executes a single job by name.
func (r *Runner) RunOnce(name string) error {
	switch name {
	case JobReminders:
		r.SendReminders()
	case JobSync:
		r.SyncReservations()
	case "all":
		r.SyncReservations()
		r.SendReminders()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	return nil
}

func (r *Runner) runWithRecovery(name string, job func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("job", name).Interface("panic", rec).Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()

	start := time.Now()
	log.Info().Str("job", name).Msg("job started")
	if err := job(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job completed")
}
