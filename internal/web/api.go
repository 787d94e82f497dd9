package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/streak"
)

// --- Streak ---

// apiGetStreak returns the stored streak.
func (s *Server) apiGetStreak(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.Streak(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

// apiCompleteStreak records a manual completion for today.
func (s *Server) apiCompleteStreak(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.CompleteNow(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

func (s *Server) apiReconcileStreak(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.Reconcile(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

// apiGetActivity returns recent completions, newest first.
func (s *Server) apiGetActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activity, err := s.app.RecentActivity(r.Context(), limit)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, activity)
}

// --- Todos ---

// CreateTodoRequest is the request body for adding a to-do.
type CreateTodoRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

func (s *Server) apiGetTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.app.Todos().List(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	progress, err := s.app.Todos().Progress(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, map[string]any{
		"todos":    todos,
		"progress": progress,
	})
}

func (s *Server) apiCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if !s.decode(w, r, &req) {
		return
	}
	todo, err := s.app.Todos().Add(r.Context(), req.Name, req.Date, s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTodos)
	s.jsonStatus(w, http.StatusCreated, todo)
}

// apiToggleTodo flips a to-do. Completing one counts towards the streak.
func (s *Server) apiToggleTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := s.app.Todos().Toggle(r.Context(), r.PathValue("id"), s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTodos)
	s.jsonResponse(w, todo)
}

func (s *Server) apiDeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Todos().Delete(r.Context(), r.PathValue("id")); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTodos)
	w.WriteHeader(http.StatusNoContent)
}

// --- Daily notes ---

// NoteRequest carries note or task text.
type NoteRequest struct {
	Text string `json:"text"`
}

func (s *Server) apiGetNoteDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.app.Notes().DaysWithContent(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, days)
}

func (s *Server) apiGetNote(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	note, err := s.app.Notes().Get(r.Context(), day)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, note)
}

func (s *Server) apiSetNote(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	note, err := s.app.Notes().SetNote(r.Context(), day, req.Text)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	s.jsonResponse(w, note)
}

func (s *Server) apiDeleteNote(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	if err := s.app.Notes().DeleteDay(r.Context(), day); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiAddNoteTask(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.app.Notes().AddTask(r.Context(), day, req.Text)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	s.jsonStatus(w, http.StatusCreated, task)
}

func (s *Server) apiToggleNoteTask(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	task, err := s.app.Notes().ToggleTask(r.Context(), day, r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	s.jsonResponse(w, task)
}

func (s *Server) apiEditNoteTask(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.app.Notes().EditTask(r.Context(), day, r.PathValue("id"), req.Text)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	s.jsonResponse(w, task)
}

func (s *Server) apiDeleteNoteTask(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	if err := s.app.Notes().DeleteTask(r.Context(), day, r.PathValue("id")); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventNotes)
	w.WriteHeader(http.StatusNoContent)
}

// --- Planner ---

// apiGetPlannerMonth returns the month grid for ?year=&month=, defaulting to
// the current month.
func (s *Server) apiGetPlannerMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.monthParams(r)
	if err != nil {
		s.apiError(w, err)
		return
	}
	view, err := s.app.Planner().Month(r.Context(), year, month, s.app.Today())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

// apiGetPlannerWeek returns the week containing ?date=, defaulting to today.
func (s *Server) apiGetPlannerWeek(w http.ResponseWriter, r *http.Request) {
	anchor := s.app.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := streak.ParseDay(v)
		if err != nil {
			s.apiError(w, fmt.Errorf("%w: %v", hub.ErrInvalidInput, err))
			return
		}
		anchor = d
	}
	view, err := s.app.Planner().Week(r.Context(), anchor, s.app.Today())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, view)
}

func (s *Server) apiGetPlan(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	plan, err := s.app.Planner().Plan(r.Context(), day)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, map[string]string{"date": day.String(), "plan": plan})
}

func (s *Server) apiSetPlan(w http.ResponseWriter, r *http.Request) {
	day, ok := s.pathDay(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.app.Planner().SetPlan(r.Context(), day, req.Text); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventPlanner)
	w.WriteHeader(http.StatusNoContent)
}

// --- Discussion ---

// CreatePostRequest is the request body for a discussion post.
type CreatePostRequest struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

func (s *Server) apiGetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.app.Discussion().List(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, posts)
}

func (s *Server) apiCreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !s.decode(w, r, &req) {
		return
	}
	post, err := s.app.Discussion().Post(r.Context(), req.Username, req.Text, s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventDiscussion)
	s.jsonStatus(w, http.StatusCreated, post)
}

// --- Library ---

// CreateBookRequest is the request body for adding a book. Tags are comma
// separated.
type CreateBookRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Tags    string `json:"tags"`
	FileURL string `json:"fileURL"`
}

// UpdateBookRequest is the request body for updating reading progress.
type UpdateBookRequest struct {
	Progress int    `json:"progress"`
	Notes    string `json:"notes"`
}

func (s *Server) apiGetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.Library().List(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, books)
}

func (s *Server) apiCreateBook(w http.ResponseWriter, r *http.Request) {
	var req CreateBookRequest
	if !s.decode(w, r, &req) {
		return
	}
	book, err := s.app.Library().Add(r.Context(), hub.NewBook{
		Title:   req.Title,
		Author:  req.Author,
		Tags:    req.Tags,
		FileURL: req.FileURL,
	}, s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventLibrary)
	s.jsonStatus(w, http.StatusCreated, book)
}

func (s *Server) apiGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.app.Library().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, book)
}

func (s *Server) apiUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookRequest
	if !s.decode(w, r, &req) {
		return
	}
	book, err := s.app.Library().Update(r.Context(), r.PathValue("id"), req.Progress, req.Notes)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventLibrary)
	s.jsonResponse(w, book)
}

func (s *Server) apiDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Library().Delete(r.Context(), r.PathValue("id")); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventLibrary)
	w.WriteHeader(http.StatusNoContent)
}

// --- Timer ---

// MinutesRequest carries a session length.
type MinutesRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) apiGetTimer(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Timer().Snapshot(r.Context(), s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, snap)
}

func (s *Server) apiStartStopwatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Timer().StartStopwatch(r.Context(), s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTimer)
	s.jsonResponse(w, snap)
}

func (s *Server) apiStartCountdown(w http.ResponseWriter, r *http.Request) {
	var req MinutesRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.app.Timer().StartCountdown(r.Context(), req.Minutes, s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTimer)
	s.jsonResponse(w, snap)
}

func (s *Server) apiStopTimer(w http.ResponseWriter, r *http.Request) {
	snap, err := s.app.Timer().Stop(r.Context(), s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTimer)
	s.jsonResponse(w, snap)
}

func (s *Server) apiResetTimer(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Timer().Reset(r.Context()); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventTimer)
	w.WriteHeader(http.StatusNoContent)
}

// --- Mock exam ---

// LoadPaperRequest names the paper for the next mock exam.
type LoadPaperRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) apiGetMock(w http.ResponseWriter, r *http.Request) {
	status, err := s.app.MockExam().Status(r.Context(), s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, status)
}

func (s *Server) apiLoadPaper(w http.ResponseWriter, r *http.Request) {
	var req LoadPaperRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := s.app.MockExam().LoadPaper(r.Context(), req.Name, req.URL)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventMock)
	s.jsonResponse(w, status)
}

func (s *Server) apiStartMock(w http.ResponseWriter, r *http.Request) {
	var req MinutesRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := s.app.MockExam().Start(r.Context(), req.Minutes, s.app.Now())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventMock)
	s.jsonResponse(w, status)
}

func (s *Server) apiEndMock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.app.Now()
	if _, err := s.app.MockExam().End(ctx, now); err != nil {
		s.apiError(w, err)
		return
	}
	status, err := s.app.MockExam().Status(ctx, now)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventMock)
	s.jsonResponse(w, status)
}

// --- Sticky note, settings, player ---

func (s *Server) apiGetSticky(w http.ResponseWriter, r *http.Request) {
	text, err := s.app.Sticky().Get(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, map[string]string{"text": text})
}

func (s *Server) apiSetSticky(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.app.Sticky().Set(r.Context(), req.Text); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventSticky)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiClearSticky(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Sticky().Clear(r.Context()); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventSticky)
	w.WriteHeader(http.StatusNoContent)
}

// apiExportSticky downloads the sticky note as a text file.
func (s *Server) apiExportSticky(w http.ResponseWriter, r *http.Request) {
	name, body, err := s.app.Sticky().Export(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(body)
}

// SettingsResponse is the dashboard settings.
type SettingsResponse struct {
	DarkMode bool                 `json:"darkMode"`
	Reminder hub.ReminderSettings `json:"reminder"`
}

// ReminderRequest configures the study reminder. A blank time keeps the
// current one.
type ReminderRequest struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"`
}

func (s *Server) apiGetSettings(w http.ResponseWriter, r *http.Request) {
	dark, err := s.app.Settings().DarkMode(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	reminder, err := s.app.Reminders().Settings(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, SettingsResponse{DarkMode: dark, Reminder: reminder})
}

func (s *Server) apiSetDarkMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.app.Settings().SetDarkMode(r.Context(), req.Enabled); err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventSettings)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiSetReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if !s.decode(w, r, &req) {
		return
	}
	settings, err := s.app.Reminders().Configure(r.Context(), req.Enabled, req.Time)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.Broadcast(studyhub.EventSettings)
	s.jsonResponse(w, settings)
}

// PlaylistResponse is the music player state.
type PlaylistResponse struct {
	Tracks  []string `json:"tracks"`
	Current int      `json:"current"`
	Label   string   `json:"label"`
}

func (s *Server) playlistResponse(i int, track string) PlaylistResponse {
	return PlaylistResponse{Tracks: s.app.Playlist().Tracks(), Current: i, Label: hub.Label(track)}
}

func (s *Server) apiGetPlaylist(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.playlistResponse(s.app.Playlist().Current()))
}

func (s *Server) apiNextTrack(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.playlistResponse(s.app.Playlist().Next()))
}

func (s *Server) apiPrevTrack(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.playlistResponse(s.app.Playlist().Prev()))
}

func (s *Server) apiSelectTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	track, err := s.app.Playlist().Select(req.Index)
	if err != nil {
		s.apiError(w, err)
		return
	}
	s.jsonResponse(w, s.playlistResponse(req.Index, track))
}

func (s *Server) apiGetQuote(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.app.Quote(r.Context()))
}

// StatusResponse reports application statistics and background jobs.
type StatusResponse struct {
	Today      string                         `json:"today"`
	Uptime     string                         `json:"uptime"`
	DaysActive int                            `json:"daysActive"`
	Metrics    studyhub.Metrics               `json:"metrics"`
	Jobs       []studyhub.BackgroundJobStatus `json:"jobs,omitempty"`
}

func (s *Server) apiGetStatus(w http.ResponseWriter, r *http.Request) {
	m := s.app.GetMetrics()
	days, err := s.app.DaysActive(r.Context())
	if err != nil {
		s.apiError(w, err)
		return
	}
	status := StatusResponse{
		Today:      s.app.Today().String(),
		Uptime:     s.app.Now().Sub(m.StartedAt).Round(time.Second).String(),
		DaysActive: days,
		Metrics:    m,
	}
	if s.jobs != nil {
		status.Jobs = s.jobs.GetStatuses()
	}
	s.jsonResponse(w, status)
}

// --- Helpers ---

// pathDay parses the {date} path value. It writes a 400 and returns false
// when the date is invalid.
func (s *Server) pathDay(w http.ResponseWriter, r *http.Request) (streak.Day, bool) {
	day, err := streak.ParseDay(r.PathValue("date"))
	if err != nil {
		s.jsonError(w, "Invalid date: "+r.PathValue("date"), http.StatusBadRequest)
		return streak.Day{}, false
	}
	return day, true
}

// monthParams reads ?year=&month=, defaulting to the current month.
func (s *Server) monthParams(r *http.Request) (int, time.Month, error) {
	today := s.app.Today()
	year, month := today.Year(), today.Month()
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("%w: invalid year %q", hub.ErrInvalidInput, v)
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: invalid month %q", hub.ErrInvalidInput, v)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// decode reads a JSON request body. An empty body leaves v unchanged.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		s.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// apiError maps domain errors to HTTP status codes.
func (s *Server) apiError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrNotFound):
		s.jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, hub.ErrInvalidInput), errors.Is(err, streak.ErrInvalidDay):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, hub.ErrTimerRunning), errors.Is(err, hub.ErrTimerIdle), errors.Is(err, hub.ErrNoPaper):
		s.jsonError(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Error("Request failed", logfields.Error(err))
		s.jsonError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, data any) {
	s.jsonStatus(w, http.StatusOK, data)
}

func (s *Server) jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", logfields.Error(err))
	}
}

// jsonError writes a JSON error response.
func (s *Server) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
