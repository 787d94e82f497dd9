package studyhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/notify"
	"github.com/madhatter5501/StudyHub/streak"
)

// --- Test Helpers ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []string
	for _, e := range n.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type memActivity struct {
	mu   sync.Mutex
	list []hub.Activity
}

func (m *memActivity) AppendActivity(_ context.Context, a hub.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append([]hub.Activity{a}, m.list...)
	return nil
}

func (m *memActivity) RecentActivity(_ context.Context, limit int) ([]hub.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.list) {
		limit = len(m.list)
	}
	return append([]hub.Activity(nil), m.list[:limit]...), nil
}

func (m *memActivity) DaysActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	days := make(map[streak.Day]bool)
	for _, a := range m.list {
		days[a.Day] = true
	}
	return len(days), nil
}

// failingStore fails every call.
type failingStore struct{}

var errDisk = errors.New("disk on fire")

func (failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDisk }
func (failingStore) Set(context.Context, string, []byte) error         { return errDisk }
func (failingStore) Delete(context.Context, string) error              { return errDisk }
func (failingStore) Keys(context.Context) ([]string, error)            { return nil, errDisk }

var monday = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, opts ...Option) (*App, *fakeClock, *recordingNotifier) {
	t.Helper()
	clock := &fakeClock{now: monday}
	notifier := &recordingNotifier{}
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	all := append([]Option{WithClock(clock), WithNotifier(notifier)}, opts...)
	return New(hub.NewMemoryState(), cfg, all...), clock, notifier
}

// --- Tests ---

func TestTodoCompletionBuildsStreak(t *testing.T) {
	app, clock, notifier := newTestApp(t)
	ctx := t.Context()

	_, err := app.Start(ctx)
	require.NoError(t, err)

	todo, err := app.Todos().Add(ctx, "Read chapter 3", "2024-01-20", app.Now())
	require.NoError(t, err)
	_, err = app.Todos().Toggle(ctx, todo.ID, app.Now())
	require.NoError(t, err)

	view, err := app.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, StreakView{Count: 1, LastCompletedDate: "2024-01-15", Active: true}, view)

	last, err := app.StudyLog().LastStudied(ctx)
	require.NoError(t, err)
	assert.Equal(t, streak.DayOf(monday), last)

	// Next day extends.
	clock.Set(monday.AddDate(0, 0, 1))
	view, err = app.CompleteNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Count)

	assert.Equal(t, []string{notify.KindStreak, notify.KindStreak}, notifier.Kinds())
	assert.Equal(t, 2, app.GetMetrics().Completions)
	assert.Equal(t, 2, app.GetMetrics().Transitions)
}

func TestStartBreaksStreakAfterMissedDay(t *testing.T) {
	store := hub.NewMemoryState()
	require.NoError(t, store.Set(t.Context(), streak.DefaultKey,
		[]byte(`{"count":5,"lastCompletedDate":"2024-01-12"}`)))

	clock := &fakeClock{now: monday}
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	app := New(store, cfg, WithClock(clock), WithNotifier(&recordingNotifier{}))

	view, err := app.Start(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, view.Count)
	assert.False(t, view.Active)

	// Start only reconciles once.
	again, err := app.Start(t.Context())
	require.NoError(t, err)
	assert.Equal(t, view, again)
	assert.Equal(t, 1, app.GetMetrics().Reconciles)
}

func TestStartKeepsStreakFromYesterday(t *testing.T) {
	store := hub.NewMemoryState()
	require.NoError(t, store.Set(t.Context(), streak.DefaultKey,
		[]byte(`{"count":3,"lastCompletedDate":"2024-01-14"}`)))

	cfg := DefaultConfig()
	cfg.Location = time.UTC
	app := New(store, cfg, WithClock(&fakeClock{now: monday}))

	view, err := app.Start(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, view.Count)
}

func TestTodayUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	cfg := DefaultConfig()
	cfg.Location = loc
	// 20:00 UTC on the 15th is already the 16th at UTC+10.
	app := New(hub.NewMemoryState(), cfg, WithClock(&fakeClock{now: monday.Add(11 * time.Hour)}))

	assert.Equal(t, "2024-01-16", app.Today().String())
}

func TestCompletionLogsActivity(t *testing.T) {
	log := &memActivity{}
	app, _, _ := newTestApp(t, WithActivityLog(log))
	ctx := t.Context()

	_, err := app.Timer().StartStopwatch(ctx, app.Now())
	require.NoError(t, err)

	recent, err := app.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, hub.SourceStopwatch, recent[0].Source)
	assert.Equal(t, streak.DayOf(monday), recent[0].Day)

	days, err := app.DaysActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestRecentActivityWithoutLog(t *testing.T) {
	app, _, _ := newTestApp(t)
	recent, err := app.RecentActivity(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	days, err := app.DaysActive(t.Context())
	require.NoError(t, err)
	assert.Zero(t, days)
}

func TestCheckReminder(t *testing.T) {
	app, clock, notifier := newTestApp(t)
	ctx := t.Context()

	_, err := app.Reminders().Configure(ctx, true, "19:00")
	require.NoError(t, err)

	sent, err := app.CheckReminder(ctx)
	require.NoError(t, err)
	assert.False(t, sent, "not yet time")

	clock.Set(time.Date(2024, time.January, 15, 19, 0, 30, 0, time.UTC))
	sent, err = app.CheckReminder(ctx)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []string{notify.KindReminder}, notifier.Kinds())

	// Only once a day.
	sent, err = app.CheckReminder(ctx)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, 1, app.GetMetrics().RemindersSent)
}

func TestCheckReminderSkippedAfterStudying(t *testing.T) {
	app, clock, notifier := newTestApp(t)
	ctx := t.Context()

	_, err := app.Reminders().Configure(ctx, true, "19:00")
	require.NoError(t, err)
	_, err = app.CompleteNow(ctx)
	require.NoError(t, err)

	clock.Set(time.Date(2024, time.January, 15, 19, 0, 0, 0, time.UTC))
	sent, err := app.CheckReminder(ctx)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.NotContains(t, notifier.Kinds(), notify.KindReminder)
}

func TestCheckReminderNotifyFailure(t *testing.T) {
	app, clock, notifier := newTestApp(t)
	ctx := t.Context()
	_, err := app.Reminders().Configure(ctx, true, "19:00")
	require.NoError(t, err)

	notifier.err = errors.New("offline")
	clock.Set(time.Date(2024, time.January, 15, 19, 0, 0, 0, time.UTC))
	sent, err := app.CheckReminder(ctx)
	assert.Error(t, err)
	assert.False(t, sent)

	settings, err := app.Reminders().Settings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings.LastSent, "failed reminder is retried")
}

func TestStartSeedsReminderDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.ReminderEnabled = true
	cfg.ReminderTime = "07:30"
	app := New(hub.NewMemoryState(), cfg, WithClock(&fakeClock{now: monday}))

	_, err := app.Start(t.Context())
	require.NoError(t, err)

	settings, err := app.Reminders().Settings(t.Context())
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, "07:30", settings.Time)
}

func TestSweepFinishesCountdown(t *testing.T) {
	app, clock, notifier := newTestApp(t)
	ctx := t.Context()

	events, unsubscribe := app.Subscribe()
	defer unsubscribe()

	_, err := app.Timer().StartCountdown(ctx, 1, app.Now())
	require.NoError(t, err)

	require.NoError(t, app.Sweep(ctx))
	snap, err := app.Timer().Snapshot(ctx, app.Now())
	require.NoError(t, err)
	assert.True(t, snap.Running)

	clock.Set(monday.Add(61 * time.Second))
	require.NoError(t, app.Sweep(ctx))
	snap, err = app.Timer().Snapshot(ctx, app.Now())
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Contains(t, notifier.Kinds(), notify.KindSession)

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Contains(t, types, EventTimer)
	assert.Contains(t, types, EventStreak)
}

func TestSweepFinishesMockExam(t *testing.T) {
	app, clock, _ := newTestApp(t)
	ctx := t.Context()

	_, err := app.MockExam().LoadPaper(ctx, "Paper 1", "")
	require.NoError(t, err)
	_, err = app.MockExam().Start(ctx, hub.MinMockMinutes, app.Now())
	require.NoError(t, err)

	clock.Set(monday.Add(hub.MinMockMinutes * time.Minute))
	require.NoError(t, app.Sweep(ctx))

	status, err := app.MockExam().Status(ctx, app.Now())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, hub.MockFinished, status.Outcome)

	view, err := app.Streak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	app, _, _ := newTestApp(t)

	events, unsubscribe := app.Subscribe()
	app.Publish(EventTodos, nil)
	assert.Equal(t, Event{Type: EventTodos}, <-events)

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open)

	// Publishing with no subscribers is fine.
	app.Publish(EventTodos, nil)
}

func TestQuoteFallsBackWithoutURL(t *testing.T) {
	app, _, _ := newTestApp(t)
	q := app.Quote(t.Context())
	assert.True(t, q.Fallback)
	assert.NotEmpty(t, q.Content)
}
