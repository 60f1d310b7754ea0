// Package scheduler runs the periodic refresh job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "shiftcal/internal/log"
)

// Job is one scheduled run. Errors are logged, never fatal.
type Job func(ctx context.Context) error

// Scheduler wraps a cron instance with a single job.
type Scheduler struct {
	spec       string
	cron       *cron.Cron
	job        Job
	runOnStart bool
}

// Options configures New.
type Options struct {
	// Spec is a standard 5-field cron expression or a descriptor such as
	// "@hourly".
	Spec string
	// Location evaluates Spec; nil means time.Local.
	Location *time.Location
	// RunOnStart triggers the job once as soon as Run is called.
	RunOnStart bool
}

// New validates opts.Spec and prepares the scheduler. Nothing runs until Run.
func New(opts Options, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: job is required")
	}
	if err := Validate(opts.Spec); err != nil {
		return nil, err
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(opts.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{spec: opts.Spec, cron: c, job: job, runOnStart: opts.RunOnStart}, nil
}

// Run starts the cron loop and blocks until ctx is canceled. On return all
// in-flight jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runJob(ctx, "cron") }); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", s.spec, err)
	}

	appLog.Info("scheduler started", "spec", s.spec)
	s.cron.Start()

	if s.runOnStart {
		s.runJob(ctx, "startup")
	}

	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		appLog.Error("scheduled job failed", err, "trigger", trigger)
		return
	}
	appLog.Debug("scheduled job done", "trigger", trigger, "took", time.Since(start).String())
}

// Validate reports whether spec parses as a cron schedule.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}
	return nil
}

// cronLogger routes cron's internal logging into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
