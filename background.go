package studyhub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/scheduler"
)

// BackgroundJob names a periodic job.
type BackgroundJob string

const (
	JobDailyReconcile BackgroundJob = "daily-reconcile"
	JobReminderCheck  BackgroundJob = "reminder-check"
	JobSweep          BackgroundJob = "sweep"
)

// Job states.
const (
	JobIdle    = "Idle"
	JobRunning = "Running"
	JobError   = "Error"
	JobStopped = "Stopped"
)

// BackgroundJobStatus is the current state of a background job.
type BackgroundJobStatus struct {
	Job             BackgroundJob `json:"job"`
	Status          string        `json:"status"`
	CurrentActivity string        `json:"currentActivity"`
	LastActiveAt    time.Time     `json:"lastActiveAt"`
	CycleCount      int           `json:"cycleCount"`
}

// BackgroundJobManager runs the app's periodic work: the midnight streak
// reconcile, the reminder check and the timer sweep.
type BackgroundJobManager struct {
	app       *App
	scheduler *scheduler.Scheduler
	jobs      map[BackgroundJob]*backgroundJob
	mu        sync.RWMutex
}

type backgroundJob struct {
	name     BackgroundJob
	status   BackgroundJobStatus
	interval time.Duration // zero for the daily job
	runFunc  func(context.Context) error
	mu       sync.RWMutex
}

// NewBackgroundJobManager registers the app's jobs on s.
func NewBackgroundJobManager(app *App, s *scheduler.Scheduler) (*BackgroundJobManager, error) {
	m := &BackgroundJobManager{
		app:       app,
		scheduler: s,
		jobs:      make(map[BackgroundJob]*backgroundJob),
	}

	m.registerJob(JobDailyReconcile, 0, m.runDailyReconcile)
	m.registerJob(JobReminderCheck, app.config.ReminderInterval, m.runReminderCheck)
	m.registerJob(JobSweep, app.config.SweepInterval, m.runSweep)

	for _, job := range m.jobs {
		var err error
		if job.interval == 0 {
			// A few seconds past midnight so the new day is unambiguous.
			err = s.DailyAt(string(job.name), 0, 0, 5, m.cycle(job))
		} else {
			err = s.Every(string(job.name), job.interval, m.cycle(job))
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BackgroundJobManager) registerJob(name BackgroundJob, interval time.Duration, runFunc func(context.Context) error) {
	m.jobs[name] = &backgroundJob{
		name: name,
		status: BackgroundJobStatus{
			Job:             name,
			Status:          JobIdle,
			CurrentActivity: "Waiting to start",
			LastActiveAt:    m.app.Now(),
		},
		interval: interval,
		runFunc:  runFunc,
	}
}

// Start begins running jobs.
func (m *BackgroundJobManager) Start() {
	m.app.logger.Info("Starting background jobs")
	m.scheduler.Start()
}

// Stop shuts the scheduler down and marks every job stopped.
func (m *BackgroundJobManager) Stop() error {
	err := m.scheduler.Stop()
	for _, job := range m.jobs {
		m.updateJobStatus(job, JobStopped, "Shutdown requested")
	}
	return err
}

// GetStatuses returns the status of every job, sorted by name.
func (m *BackgroundJobManager) GetStatuses() []BackgroundJobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]BackgroundJobStatus, 0, len(m.jobs))
	for _, job := range m.jobs {
		job.mu.RLock()
		statuses = append(statuses, job.status)
		job.mu.RUnlock()
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Job < statuses[j].Job })
	return statuses
}

// RunNow runs one cycle of the named job immediately.
func (m *BackgroundJobManager) RunNow(ctx context.Context, name BackgroundJob) error {
	m.mu.RLock()
	job, ok := m.jobs[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown background job %q", name)
	}
	return m.cycle(job)(ctx)
}

func (m *BackgroundJobManager) updateJobStatus(job *backgroundJob, status, activity string) {
	job.mu.Lock()
	defer job.mu.Unlock()
	job.status.Status = status
	job.status.CurrentActivity = activity
	job.status.LastActiveAt = m.app.Now()
}

// cycle wraps a job body with status bookkeeping. The scheduler does the
// logging and run counting.
func (m *BackgroundJobManager) cycle(job *backgroundJob) scheduler.Task {
	return func(ctx context.Context) error {
		m.updateJobStatus(job, JobRunning, "Starting cycle")

		if err := job.runFunc(ctx); err != nil {
			m.updateJobStatus(job, JobError, err.Error())
			return err
		}

		job.mu.Lock()
		job.status.CycleCount++
		job.mu.Unlock()

		m.updateJobStatus(job, JobIdle, "Waiting for next cycle")
		return nil
	}
}

// --- Job Implementations ---

func (m *BackgroundJobManager) runDailyReconcile(ctx context.Context) error {
	view, err := m.app.Reconcile(ctx)
	if err != nil {
		return err
	}
	m.app.logger.Info("Daily streak check", logfields.Day(m.app.Today().String()), logfields.Count(view.Count))
	return nil
}

func (m *BackgroundJobManager) runReminderCheck(ctx context.Context) error {
	_, err := m.app.CheckReminder(ctx)
	return err
}

func (m *BackgroundJobManager) runSweep(ctx context.Context) error {
	return m.app.Sweep(ctx)
}
