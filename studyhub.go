// Package studyhub wires the StudyHub dashboard together: the streak tracker,
// the widgets in package hub, and the metrics, notifications and background
// jobs around them.
package studyhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/metrics"
	"github.com/madhatter5501/StudyHub/internal/notify"
	"github.com/madhatter5501/StudyHub/internal/quote"
	"github.com/madhatter5501/StudyHub/streak"
)

// Event types broadcast to subscribers. They double as SSE event names.
const (
	EventStreak     = "streak"
	EventTodos      = "todos"
	EventNotes      = "notes"
	EventPlanner    = "planner"
	EventDiscussion = "discussion"
	EventLibrary    = "library"
	EventTimer      = "timer"
	EventMock       = "mock"
	EventSticky     = "sticky"
	EventSettings   = "settings"
	EventStorage    = "storage"
	EventReminder   = "reminder"
)

// Event is a change notification for dashboard clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Config holds application settings.
type Config struct {
	// Location decides which calendar day "today" is.
	Location *time.Location `json:"-"`

	// Tracks is the music player playlist.
	Tracks []string `json:"tracks"`

	// Reminder defaults, applied when no reminder settings are stored yet.
	ReminderEnabled bool   `json:"reminderEnabled"`
	ReminderTime    string `json:"reminderTime"`

	// Background job intervals.
	ReminderInterval time.Duration `json:"reminderInterval"`
	SweepInterval    time.Duration `json:"sweepInterval"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Location:         time.Local,
		Tracks:           hub.DefaultTracks,
		ReminderTime:     hub.DefaultReminderTime,
		ReminderInterval: time.Minute,
		SweepInterval:    time.Second,
	}
}

// Metrics tracks application statistics.
type Metrics struct {
	StartedAt     time.Time `json:"startedAt"`
	Completions   int       `json:"completions"`
	Transitions   int       `json:"transitions"`
	RemindersSent int       `json:"remindersSent"`
	Reconciles    int       `json:"reconciles"`
}

// StreakView is the streak as shown on the dashboard.
type StreakView struct {
	Count             int    `json:"count"`
	LastCompletedDate string `json:"lastCompletedDate,omitempty"`
	Active            bool   `json:"active"`
	Transition        string `json:"transition,omitempty"`
}

// App coordinates the dashboard.
type App struct {
	config   Config
	store    hub.Store
	activity hub.ActivityLog
	clock    Clock
	logger   *slog.Logger
	recorder metrics.Recorder
	notifier notify.Notifier
	quotes   *quote.Client

	tracker    *streak.Tracker
	todos      *hub.Todos
	notes      *hub.Notes
	planner    *hub.Planner
	discussion *hub.Discussion
	library    *hub.Library
	timer      *hub.Timer
	mock       *hub.MockExam
	studyLog   *hub.StudyLog
	reminders  *hub.Reminders
	sticky     *hub.Sticky
	settings   *hub.Settings
	playlist   *hub.Playlist

	startOnce sync.Once
	started   StreakView
	startErr  error

	subsMu sync.RWMutex
	subs   map[chan Event]struct{}

	mu      sync.Mutex
	metrics Metrics
}

// Option configures an App.
type Option func(*App)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option { return func(a *App) { a.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.logger = l } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(a *App) { a.recorder = r } }

// WithNotifier sets where streak changes and reminders are sent.
func WithNotifier(n notify.Notifier) Option { return func(a *App) { a.notifier = n } }

// WithActivityLog records every completion. Stores that implement
// hub.ActivityLog are used automatically.
func WithActivityLog(l hub.ActivityLog) Option { return func(a *App) { a.activity = l } }

// WithQuotes sets the quote client.
func WithQuotes(q *quote.Client) Option { return func(a *App) { a.quotes = q } }

// New creates the application over store.
func New(store hub.Store, config Config, opts ...Option) *App {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.ReminderTime == "" {
		config.ReminderTime = hub.DefaultReminderTime
	}
	if config.ReminderInterval <= 0 {
		config.ReminderInterval = time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Second
	}

	a := &App{
		config:   config,
		store:    store,
		clock:    ClockFunc(time.Now),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		subs:     make(map[chan Event]struct{}),
	}
	if l, ok := store.(hub.ActivityLog); ok {
		a.activity = l
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.notifier == nil {
		a.notifier = notify.LogNotifier{Logger: a.logger}
	}
	if a.quotes == nil {
		a.quotes = quote.NewClient("", time.Second, "", a.logger)
	}
	a.metrics.StartedAt = a.clock.Now()

	a.tracker = streak.NewTracker(store,
		streak.WithLogger(a.logger),
		streak.WithObserver(a.onStreakChange))
	a.studyLog = hub.NewStudyLog(store)
	a.reminders = hub.NewReminders(store, a.studyLog)
	a.todos = hub.NewTodos(store, a)
	a.notes = hub.NewNotes(store)
	a.planner = hub.NewPlanner(store, a.notes)
	a.discussion = hub.NewDiscussion(store)
	a.library = hub.NewLibrary(store)
	a.timer = hub.NewTimer(store, a)
	a.mock = hub.NewMockExam(store, a)
	a.sticky = hub.NewSticky(store)
	a.settings = hub.NewSettings(store)
	a.playlist = hub.NewPlaylist(config.Tracks)
	return a
}

// Now returns the current time in the configured location.
func (a *App) Now() time.Time {
	return a.clock.Now().In(a.config.Location)
}

// Today returns the current calendar day in the configured location.
func (a *App) Today() streak.Day {
	return streak.DayOf(a.Now())
}

// Location returns the zone that decides "today".
func (a *App) Location() *time.Location {
	return a.config.Location
}

// Start performs the application-start reconcile. Only the first call does
// any work; later calls return the first result.
func (a *App) Start(ctx context.Context) (StreakView, error) {
	a.startOnce.Do(func() {
		if err := a.seedReminders(ctx); err != nil {
			a.startErr = err
			return
		}
		a.started, a.startErr = a.Reconcile(ctx)
		if a.startErr == nil {
			a.logger.Info("StudyHub started",
				logfields.Day(a.Today().String()),
				logfields.Count(a.started.Count))
		}
	})
	return a.started, a.startErr
}

// seedReminders stores the configured reminder defaults on first run.
func (a *App) seedReminders(ctx context.Context) error {
	_, ok, err := a.store.Get(ctx, hub.KeyReminder)
	if err != nil || ok {
		return err
	}
	_, err = a.reminders.Configure(ctx, a.config.ReminderEnabled, a.config.ReminderTime)
	return err
}

// Reconcile breaks the streak if a day was missed. It runs at start and
// again shortly after every midnight.
func (a *App) Reconcile(ctx context.Context) (StreakView, error) {
	st, err := a.tracker.Reconcile(ctx, a.Today())
	if err != nil {
		return StreakView{}, err
	}
	a.mu.Lock()
	a.metrics.Reconciles++
	a.mu.Unlock()
	a.recorder.SetStreak(st.Count)
	return viewOf(st, ""), nil
}

// Streak returns the stored streak without changing it.
func (a *App) Streak(ctx context.Context) (StreakView, error) {
	st, err := a.tracker.Current(ctx)
	if err != nil {
		return StreakView{}, err
	}
	return viewOf(st, ""), nil
}

// Complete records a qualifying study action: it counts today towards the
// streak, marks today as studied and logs the activity. It implements
// hub.Completer for the widgets.
func (a *App) Complete(ctx context.Context, source string, now time.Time) error {
	today := streak.DayOf(now.In(a.config.Location))

	if _, err := a.tracker.RecordCompletion(ctx, today); err != nil {
		return err
	}

	var errs []error
	if err := a.studyLog.MarkStudied(ctx, today); err != nil {
		errs = append(errs, err)
	}
	if a.activity != nil {
		if err := a.activity.AppendActivity(ctx, hub.Activity{Day: today, Source: source, At: now}); err != nil {
			errs = append(errs, err)
		}
	}

	a.mu.Lock()
	a.metrics.Completions++
	a.mu.Unlock()
	a.recorder.IncCompletion(source)
	a.logger.Debug("Completion recorded", logfields.Source(source), logfields.Day(today.String()))

	return errors.Join(errs...)
}

// CompleteNow records a manual completion at the current time.
func (a *App) CompleteNow(ctx context.Context) (StreakView, error) {
	if err := a.Complete(ctx, hub.SourceManual, a.Now()); err != nil {
		return StreakView{}, err
	}
	return a.Streak(ctx)
}

func (a *App) onStreakChange(st streak.State, t streak.Transition) {
	a.mu.Lock()
	a.metrics.Transitions++
	a.mu.Unlock()

	a.recorder.SetStreak(st.Count)
	a.recorder.IncTransition(string(t))

	view := viewOf(st, t)
	a.Publish(EventStreak, view)

	err := a.notifier.Notify(context.Background(), notify.Event{
		Kind:  notify.KindStreak,
		Title: streakTitle(t, st.Count),
		Data:  view,
		At:    a.Now(),
	})
	if err != nil {
		a.logger.Warn("Failed to send streak notification", logfields.Error(err))
	}
}

func streakTitle(t streak.Transition, count int) string {
	switch t {
	case streak.TransitionGenesis, streak.TransitionRestart:
		return "Streak started"
	case streak.TransitionExtended:
		return fmt.Sprintf("Streak extended to %d days", count)
	case streak.TransitionBroken:
		return "Streak broken"
	default:
		return "Streak reset"
	}
}

func viewOf(st streak.State, t streak.Transition) StreakView {
	v := StreakView{Count: st.Count, Active: st.Active()}
	if st.LastCompletedDate != nil {
		v.LastCompletedDate = st.LastCompletedDate.String()
	}
	if t != "" && t != streak.TransitionNone {
		v.Transition = string(t)
	}
	return v
}

// CheckReminder sends the study reminder when one is due. It reports whether
// a reminder went out.
func (a *App) CheckReminder(ctx context.Context) (bool, error) {
	now := a.Now()
	due, err := a.reminders.ShouldRemind(ctx, now)
	if err != nil || !due {
		return false, err
	}

	event := notify.Event{
		Kind:  notify.KindReminder,
		Title: "Study Reminder",
		Body:  "You haven't studied today! Time to hit the books.",
		At:    now,
	}
	if err := a.notifier.Notify(ctx, event); err != nil {
		a.recorder.IncReminder(false)
		return false, err
	}
	if err := a.reminders.MarkSent(ctx, streak.DayOf(now)); err != nil {
		return true, err
	}

	a.mu.Lock()
	a.metrics.RemindersSent++
	a.mu.Unlock()
	a.recorder.IncReminder(true)
	a.Publish(EventReminder, event)
	return true, nil
}

// Sweep finishes expired countdowns and mock exams.
func (a *App) Sweep(ctx context.Context) error {
	now := a.Now()
	var errs []error

	finished, err := a.timer.Tick(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	if finished {
		a.sessionFinished(ctx, EventTimer, "Session complete! Take a break.", now)
	}

	finished, err = a.mock.Tick(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	if finished {
		a.sessionFinished(ctx, EventMock, "Mock Test Complete! Time to review.", now)
	}
	return errors.Join(errs...)
}

func (a *App) sessionFinished(ctx context.Context, eventType, title string, now time.Time) {
	a.Publish(eventType, nil)
	err := a.notifier.Notify(ctx, notify.Event{Kind: notify.KindSession, Title: title, At: now})
	if err != nil {
		a.logger.Warn("Failed to send session notification", logfields.Error(err))
	}
}

// RecentActivity returns the latest completions when an activity log is configured.
func (a *App) RecentActivity(ctx context.Context, limit int) ([]hub.Activity, error) {
	if a.activity == nil {
		return []hub.Activity{}, nil
	}
	return a.activity.RecentActivity(ctx, limit)
}

// DaysActive returns how many distinct days have a logged completion, or 0
// without an activity log.
func (a *App) DaysActive(ctx context.Context) (int, error) {
	if a.activity == nil {
		return 0, nil
	}
	return a.activity.DaysActive(ctx)
}

// Quote returns today's motivational quote.
func (a *App) Quote(ctx context.Context) quote.Quote {
	return a.quotes.Get(ctx)
}

// Subscribe registers for change events. The returned function unsubscribes.
// Slow subscribers miss events rather than block publishers.
func (a *App) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	a.subsMu.Lock()
	a.subs[ch] = struct{}{}
	a.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subsMu.Lock()
			delete(a.subs, ch)
			a.subsMu.Unlock()
			close(ch)
		})
	}
}

// Publish sends an event to every subscriber.
func (a *App) Publish(eventType string, data any) {
	a.subsMu.RLock()
	defer a.subsMu.RUnlock()

	e := Event{Type: eventType, Data: data}
	for ch := range a.subs {
		select {
		case ch <- e:
		default:
			// Subscriber too slow, skip
		}
	}
}

// GetMetrics returns a snapshot of application statistics.
func (a *App) GetMetrics() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Store returns the underlying store.
func (a *App) Store() hub.Store { return a.store }

func (a *App) Tracker() *streak.Tracker    { return a.tracker }
func (a *App) Todos() *hub.Todos           { return a.todos }
func (a *App) Notes() *hub.Notes           { return a.notes }
func (a *App) Planner() *hub.Planner       { return a.planner }
func (a *App) Discussion() *hub.Discussion { return a.discussion }
func (a *App) Library() *hub.Library       { return a.library }
func (a *App) Timer() *hub.Timer           { return a.timer }
func (a *App) MockExam() *hub.MockExam     { return a.mock }
func (a *App) StudyLog() *hub.StudyLog     { return a.studyLog }
func (a *App) Reminders() *hub.Reminders   { return a.reminders }
func (a *App) Sticky() *hub.Sticky         { return a.sticky }
func (a *App) Settings() *hub.Settings     { return a.settings }
func (a *App) Playlist() *hub.Playlist     { return a.playlist }
