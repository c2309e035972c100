package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anyulbade/furniture-credit/internal/app"
	"github.com/anyulbade/furniture-credit/internal/config"
	"github.com/anyulbade/furniture-credit/internal/jobs"
)

func main() {
	runOnce := flag.String("run-once", "", "run a single job and exit (reminders, sync, all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	app.SetupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	defer a.Close()

	runner := jobs.NewRunner(a.Credit, a.Reconcile, cfg.ReminderDaysAhead)

	if *runOnce != "" {
		if err := runner.RunOnce(*runOnce); err != nil {
			log.Error().Err(err).Msg("job not run")
		}
		return
	}

	scheduler, err := jobs.NewScheduler(runner, jobs.Schedule{
		Reminders: cfg.ReminderCron,
		Sync:      cfg.SyncCron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register jobs")
	}
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	scheduler.Stop()
	log.Info().Msg("cron runner exited")
}
