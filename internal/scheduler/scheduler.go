// Package scheduler runs periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/suratjalan/internal/config"
)

var schedulerTracer = otel.Tracer("github.com/Additional-Code/suratjalan/scheduler")

// Job is a named unit of periodic work. Disabled jobs can still be run on
// demand through Scheduler.Run.
type Job struct {
	Name     string
	Schedule string
	Disabled bool
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Config config.Config
	Logger *zap.Logger
	Jobs   []Job `group:"scheduler.jobs"`
}

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]Job
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// Providers supplies the scheduler and the built-in jobs without starting them.
var Providers = fx.Provide(
	NewScheduler,
	fx.Annotate(
		NewSweepJob,
		fx.ResultTags(`group:"scheduler.jobs"`),
	),
)

// Module wires the scheduler, its lifecycle and the built-in jobs into Fx.
var Module = fx.Options(
	Providers,
	fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Start()
				return nil
			},
			OnStop: s.Stop,
		})
	}),
)

// NewScheduler registers every enabled job with a cron runner in the business
// time zone. Overlapping runs of the same job are skipped.
func NewScheduler(p Params) (*Scheduler, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := p.Config.Business.Location
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		jobs:   make(map[string]Job, len(p.Jobs)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	for _, job := range p.Jobs {
		if job.Name == "" || job.Run == nil {
			continue
		}
		if _, dup := s.jobs[job.Name]; dup {
			cancel()
			return nil, fmt.Errorf("scheduler: duplicate job %q", job.Name)
		}
		s.jobs[job.Name] = job
		if job.Disabled {
			continue
		}

		job := job
		if _, err := c.AddFunc(job.Schedule, func() { _ = s.execute(s.ctx, job) }); err != nil {
			cancel()
			return nil, fmt.Errorf("scheduler: job %q: invalid schedule %q: %w", job.Name, job.Schedule, err)
		}
	}

	return s, nil
}

// Start begins firing scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop halts the runner and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	}
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named job once, synchronously.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	ctx, span := schedulerTracer.Start(ctx, "scheduler.job", trace.WithAttributes(
		attribute.String("job.name", job.Name),
	))
	defer span.End()

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		s.logger.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return err
	}

	s.logger.Debug("scheduled job finished",
		zap.String("job", job.Name),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// cronLogger adapts zap to cron.Logger. Cron's info chatter is demoted to debug.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
