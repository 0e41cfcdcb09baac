// Package schedule repeats batch runs on a six-field cron expression.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	clierr "github.com/ggonzalez94/creek-cli/internal/errors"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job runs one scheduled batch. A job still running when its next tick
// fires causes that tick to be skipped.
type Job func(ctx context.Context)

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
	}
}

// Validate parses spec without registering anything.
func Validate(spec string) error {
	if _, err := parse(spec); err != nil {
		return err
	}
	return nil
}

// Next returns the first activation of spec strictly after from.
func Next(spec string, from time.Time) (time.Time, error) {
	sched, err := parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

func parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, clierr.New(clierr.CodeUsage, "cron expression is required")
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid cron expression %q", spec), err)
	}
	return sched, nil
}

// Add registers job under spec. ctx is handed to every invocation.
func (s *Scheduler) Add(ctx context.Context, name, spec string, job Job) error {
	if _, err := parse(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(strings.TrimSpace(spec), func() {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		s.logger.Info("scheduled run starting", "job", name)
		job(ctx)
		s.logger.Info("scheduled run finished", "job", name, "elapsed_ms", time.Since(started).Milliseconds())
	})
	if err != nil {
		return clierr.Wrap(clierr.CodeUsage, "register scheduled job", err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
	return nil
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
