package studyhub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatter5501/StudyHub/internal/scheduler"
	"github.com/madhatter5501/StudyHub/streak"
)

func newTestJobs(t *testing.T, app *App) *BackgroundJobManager {
	t.Helper()
	s, err := scheduler.New(scheduler.WithLocation(time.UTC))
	require.NoError(t, err)
	m, err := NewBackgroundJobManager(app, s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestBackgroundJobsRegistered(t *testing.T) {
	app, _, _ := newTestApp(t)
	m := newTestJobs(t, app)

	statuses := m.GetStatuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, JobDailyReconcile, statuses[0].Job)
	assert.Equal(t, JobReminderCheck, statuses[1].Job)
	assert.Equal(t, JobSweep, statuses[2].Job)
	for _, s := range statuses {
		assert.Equal(t, JobIdle, s.Status)
	}
	assert.ElementsMatch(t, []string{"daily-reconcile", "reminder-check", "sweep"}, m.scheduler.Jobs())
}

func TestRunNowDailyReconcile(t *testing.T) {
	app, clock, _ := newTestApp(t)
	ctx := t.Context()
	m := newTestJobs(t, app)

	_, err := app.CompleteNow(ctx)
	require.NoError(t, err)

	// Two days later the streak is broken by the midnight job.
	clock.Set(monday.AddDate(0, 0, 2))
	require.NoError(t, m.RunNow(ctx, JobDailyReconcile))

	st, err := app.Tracker().Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, streak.State{}, st)

	statuses := m.GetStatuses()
	assert.Equal(t, 1, statuses[0].CycleCount)
	assert.Equal(t, JobIdle, statuses[0].Status)
}

func TestRunNowRecordsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	app := New(failingStore{}, cfg, WithClock(&fakeClock{now: monday}))
	m := newTestJobs(t, app)

	err := m.RunNow(t.Context(), JobReminderCheck)
	require.ErrorIs(t, err, errDisk)

	var status BackgroundJobStatus
	for _, s := range m.GetStatuses() {
		if s.Job == JobReminderCheck {
			status = s
		}
	}
	assert.Equal(t, JobError, status.Status)
	assert.Contains(t, status.CurrentActivity, errDisk.Error())
	assert.Equal(t, 0, status.CycleCount)
}

func TestRunNowUnknownJob(t *testing.T) {
	app, _, _ := newTestApp(t)
	m := newTestJobs(t, app)
	assert.Error(t, m.RunNow(t.Context(), "gardening"))
}

func TestStopMarksJobsStopped(t *testing.T) {
	app, _, _ := newTestApp(t)
	s, err := scheduler.New(scheduler.WithLocation(time.UTC))
	require.NoError(t, err)
	m, err := NewBackgroundJobManager(app, s)
	require.NoError(t, err)

	m.Start()
	require.NoError(t, m.Stop())
	for _, st := range m.GetStatuses() {
		assert.Equal(t, JobStopped, st.Status)
	}
}
