package main

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// cronLogger adapts arbor to cron's logger
type cronLogger struct {
	logger arbor.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

// runScheduled runs job on spec until ctx is cancelled. A run still in
// progress when the next one is due makes that one skip, so sessions never
// overlap.
func runScheduled(ctx context.Context, spec string, logger arbor.ILogger, job func(context.Context) error) error {
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	if _, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil {
			logger.Error().Err(err).Str("schedule", spec).Msg("Scheduled run failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	logger.Info().Str("schedule", spec).Msg("Scheduler started")
	c.Start()
	<-ctx.Done()

	// Wait for a run in progress to finish
	<-c.Stop().Done()
	logger.Info().Msg("Scheduler stopped")
	return nil
}
