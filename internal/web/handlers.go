package web

import (
	"context"
	"net/http"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/quote"
	"github.com/madhatter5501/StudyHub/streak"
)

// Dashboard is the data behind the main page.
type Dashboard struct {
	Title    string
	Today    streak.Day
	DarkMode bool
	Streak   studyhub.StreakView
	Quote    quote.Quote
	Todos    []hub.Todo
	Progress hub.Progress
	Note     hub.DailyNote
	Week     hub.WeekView
	Timer    hub.TimerSnapshot
	Mock     hub.MockExamStatus
	Sticky   string
	Posts    []hub.Post
	Reminder hub.ReminderSettings
	Track    string
}

// handleDashboard renders the main dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := s.dashboard(r.Context())
	if err != nil {
		s.logger.Error("Failed to load dashboard", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "dashboard.html", data)
}

func (s *Server) dashboard(ctx context.Context) (*Dashboard, error) {
	app := s.app
	now := app.Now()
	today := streak.DayOf(now)
	d := &Dashboard{Title: "StudyHub", Today: today}

	var err error
	if d.DarkMode, err = app.Settings().DarkMode(ctx); err != nil {
		return nil, err
	}
	if d.Streak, err = app.Streak(ctx); err != nil {
		return nil, err
	}
	if d.Todos, err = app.Todos().List(ctx); err != nil {
		return nil, err
	}
	d.Progress, _ = app.Todos().Progress(ctx)
	if d.Note, err = app.Notes().Get(ctx, today); err != nil {
		return nil, err
	}
	if d.Week, err = app.Planner().Week(ctx, today, today); err != nil {
		return nil, err
	}
	if d.Timer, err = app.Timer().Snapshot(ctx, now); err != nil {
		return nil, err
	}
	if d.Mock, err = app.MockExam().Status(ctx, now); err != nil {
		return nil, err
	}
	if d.Sticky, err = app.Sticky().Get(ctx); err != nil {
		return nil, err
	}
	if d.Posts, err = app.Discussion().List(ctx); err != nil {
		return nil, err
	}
	if d.Reminder, err = app.Reminders().Settings(ctx); err != nil {
		return nil, err
	}
	_, d.Track = app.Playlist().Current()
	d.Quote = app.Quote(ctx)
	return d, nil
}

// handlePlanner renders the monthly planner for ?year=&month=.
func (s *Server) handlePlanner(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.monthParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := s.app.Planner().Month(r.Context(), year, month, s.app.Today())
	if err != nil {
		s.logger.Error("Failed to load planner", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	first := streak.NewDay(year, month, 1)
	data := map[string]any{
		"Title":    view.Title,
		"DarkMode": s.darkMode(r),
		"Month":    view,
		"Prev":     first.AddDays(-1),
		"Next":     first.AddDays(32),
	}
	s.render(w, "planner.html", data)
}

// handleNotes renders the note and checklist for one day.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	day, err := streak.ParseDay(r.PathValue("date"))
	if err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}
	note, err := s.app.Notes().Get(r.Context(), day)
	if err != nil {
		s.logger.Error("Failed to load note", logfields.Day(day.String()), logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	plan, _ := s.app.Planner().Plan(r.Context(), day)

	data := map[string]any{
		"Title":    "Notes for " + day.String(),
		"DarkMode": s.darkMode(r),
		"Day":      day,
		"Note":     note,
		"Plan":     plan,
	}
	s.render(w, "notes.html", data)
}

// handleLibrary renders the book catalog.
func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.Library().List(r.Context())
	if err != nil {
		s.logger.Error("Failed to load library", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Title":    "Library",
		"DarkMode": s.darkMode(r),
		"Books":    books,
	}
	s.render(w, "library.html", data)
}

func (s *Server) darkMode(r *http.Request) bool {
	on, err := s.app.Settings().DarkMode(r.Context())
	if err != nil {
		s.logger.Warn("Failed to read dark mode setting", logfields.Error(err))
	}
	return on
}
