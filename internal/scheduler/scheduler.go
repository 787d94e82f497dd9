// Package scheduler runs StudyHub's periodic background jobs on gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/metrics"
)

// Task is the body of a job.
type Task func(ctx context.Context) error

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	recorder  metrics.Recorder
	ctx       context.Context
	cancel    context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	location *time.Location
	logger   *slog.Logger
	recorder metrics.Recorder
}

// WithLocation sets the zone daily jobs are scheduled in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder counts job runs.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New creates a scheduler. It does not run jobs until Start.
func New(opts ...Option) (*Scheduler, error) {
	o := options{
		location: time.Local,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(o.location))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		logger:    o.logger,
		recorder:  o.recorder,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Every runs task at a fixed interval. Runs never overlap.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return nil
}

// DailyAt runs task once a day at the given wall-clock time in the
// scheduler's location.
func (s *Scheduler) DailyAt(name string, hour, minute, second uint, task Task) error {
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, second))),
		gocron.NewTask(s.run, name, task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return nil
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) run(name string, task Task) {
	start := time.Now()
	err := task(s.ctx)
	s.recorder.IncJobRun(name, err == nil)
	if err != nil {
		s.logger.Error("Background job failed", logfields.Job(name), logfields.Error(err))
		return
	}
	s.logger.Debug("Background job finished", logfields.Job(name),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop cancels running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}
