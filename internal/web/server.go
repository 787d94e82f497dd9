// Package web provides the HTTP server for the StudyHub dashboard.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/madhatter5501/StudyHub"
	"github.com/madhatter5501/StudyHub/hub"
	"github.com/madhatter5501/StudyHub/internal/logfields"
	"github.com/madhatter5501/StudyHub/internal/metrics"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// markdown renders discussion posts and book notes. Raw HTML in the source is
// dropped.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// Server is the StudyHub dashboard web server.
type Server struct {
	app       *studyhub.App
	jobs      *studyhub.BackgroundJobManager
	templates *template.Template
	logger    *slog.Logger
	recorder  metrics.Recorder
	server    *http.Server

	metricsPath    string
	metricsHandler http.Handler

	// SSE clients
	sseClients   map[chan studyhub.Event]bool
	sseMu        sync.RWMutex
	shutdownOnce sync.Once
	unsubscribe  func()
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder records request durations.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithMetricsHandler serves h at path, typically the Prometheus handler.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = h
	}
}

// WithJobs exposes background job status on /api/status.
func WithJobs(m *studyhub.BackgroundJobManager) Option {
	return func(s *Server) { s.jobs = m }
}

// NewServer creates a dashboard server for app. App events are forwarded to
// SSE clients until Shutdown.
func NewServer(app *studyhub.App, logger *slog.Logger, opts ...Option) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		app:        app,
		templates:  tmpl,
		logger:     logger,
		recorder:   metrics.NoopRecorder{},
		sseClients: make(map[chan studyhub.Event]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	events, unsubscribe := app.Subscribe()
	s.unsubscribe = unsubscribe
	go func() {
		for e := range events {
			s.publish(e)
		}
	}()
	return s, nil
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"timeAgo": func(t time.Time) string {
			d := time.Since(t)
			switch {
			case d < time.Minute:
				return "just now"
			case d < time.Hour:
				return fmt.Sprintf("%dm ago", int(d.Minutes()))
			case d < 24*time.Hour:
				return fmt.Sprintf("%dh ago", int(d.Hours()))
			default:
				return fmt.Sprintf("%dd ago", int(d.Hours()/24))
			}
		},
		"truncate": func(n int, s string) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return string(r[:n]) + "..."
		},
		"until": func(n int) []int {
			return make([]int, max(n, 0))
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "N/A"
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"trackLabel": hub.Label,
		// Markdown rendering.
		"markdown": func(s string) template.HTML {
			var buf bytes.Buffer
			if err := markdown.Convert([]byte(s), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(s)) //nolint:gosec // Explicitly escaped
			}
			return template.HTML(buf.String()) //nolint:gosec // goldmark drops raw HTML by default
		},
		// Title case for display labels. A Caser is stateful, so one per call.
		"title": func(v any) string {
			return cases.Title(language.English).String(fmt.Sprint(v))
		},
		"pluralDays": func(n int) string {
			if n == 1 {
				return "1 day"
			}
			return fmt.Sprintf("%d days", n)
		},
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Page routes
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /planner", s.handlePlanner)
	mux.HandleFunc("GET /notes/{date}", s.handleNotes)
	mux.HandleFunc("GET /library", s.handleLibrary)

	// Streak API routes
	mux.HandleFunc("GET /api/streak", s.apiGetStreak)
	mux.HandleFunc("POST /api/streak/complete", s.apiCompleteStreak)
	mux.HandleFunc("POST /api/streak/reconcile", s.apiReconcileStreak)
	mux.HandleFunc("GET /api/activity", s.apiGetActivity)

	// Todo API routes
	mux.HandleFunc("GET /api/todos", s.apiGetTodos)
	mux.HandleFunc("POST /api/todos", s.apiCreateTodo)
	mux.HandleFunc("POST /api/todos/{id}/toggle", s.apiToggleTodo)
	mux.HandleFunc("DELETE /api/todos/{id}", s.apiDeleteTodo)

	// Daily notes API routes
	mux.HandleFunc("GET /api/notes", s.apiGetNoteDays)
	mux.HandleFunc("GET /api/notes/{date}", s.apiGetNote)
	mux.HandleFunc("PUT /api/notes/{date}", s.apiSetNote)
	mux.HandleFunc("DELETE /api/notes/{date}", s.apiDeleteNote)
	mux.HandleFunc("POST /api/notes/{date}/tasks", s.apiAddNoteTask)
	mux.HandleFunc("POST /api/notes/{date}/tasks/{id}/toggle", s.apiToggleNoteTask)
	mux.HandleFunc("PATCH /api/notes/{date}/tasks/{id}", s.apiEditNoteTask)
	mux.HandleFunc("DELETE /api/notes/{date}/tasks/{id}", s.apiDeleteNoteTask)

	// Planner API routes
	mux.HandleFunc("GET /api/planner/month", s.apiGetPlannerMonth)
	mux.HandleFunc("GET /api/planner/week", s.apiGetPlannerWeek)
	mux.HandleFunc("GET /api/planner/{date}", s.apiGetPlan)
	mux.HandleFunc("PUT /api/planner/{date}", s.apiSetPlan)

	// Discussion API routes
	mux.HandleFunc("GET /api/discussion", s.apiGetPosts)
	mux.HandleFunc("POST /api/discussion", s.apiCreatePost)

	// Library API routes
	mux.HandleFunc("GET /api/library", s.apiGetBooks)
	mux.HandleFunc("POST /api/library", s.apiCreateBook)
	mux.HandleFunc("GET /api/library/{id}", s.apiGetBook)
	mux.HandleFunc("PATCH /api/library/{id}", s.apiUpdateBook)
	mux.HandleFunc("DELETE /api/library/{id}", s.apiDeleteBook)

	// Timer API routes
	mux.HandleFunc("GET /api/timer", s.apiGetTimer)
	mux.HandleFunc("POST /api/timer/stopwatch", s.apiStartStopwatch)
	mux.HandleFunc("POST /api/timer/countdown", s.apiStartCountdown)
	mux.HandleFunc("POST /api/timer/stop", s.apiStopTimer)
	mux.HandleFunc("POST /api/timer/reset", s.apiResetTimer)

	// Mock exam API routes
	mux.HandleFunc("GET /api/mock", s.apiGetMock)
	mux.HandleFunc("POST /api/mock/paper", s.apiLoadPaper)
	mux.HandleFunc("POST /api/mock/start", s.apiStartMock)
	mux.HandleFunc("POST /api/mock/end", s.apiEndMock)

	// Sticky note, settings and player
	mux.HandleFunc("GET /api/sticky", s.apiGetSticky)
	mux.HandleFunc("PUT /api/sticky", s.apiSetSticky)
	mux.HandleFunc("DELETE /api/sticky", s.apiClearSticky)
	mux.HandleFunc("GET /api/sticky/export", s.apiExportSticky)
	mux.HandleFunc("GET /api/settings", s.apiGetSettings)
	mux.HandleFunc("PUT /api/settings/dark-mode", s.apiSetDarkMode)
	mux.HandleFunc("PUT /api/settings/reminder", s.apiSetReminder)
	mux.HandleFunc("GET /api/playlist", s.apiGetPlaylist)
	mux.HandleFunc("POST /api/playlist/next", s.apiNextTrack)
	mux.HandleFunc("POST /api/playlist/prev", s.apiPrevTrack)
	mux.HandleFunc("POST /api/playlist/select", s.apiSelectTrack)
	mux.HandleFunc("GET /api/quote", s.apiGetQuote)
	mux.HandleFunc("GET /api/status", s.apiGetStatus)

	// SSE for real-time updates
	mux.HandleFunc("GET /api/events", s.handleSSE)

	// htmx partials
	mux.HandleFunc("GET /partials/streak", s.partialStreak)
	mux.HandleFunc("GET /partials/todos", s.partialTodos)
	mux.HandleFunc("GET /partials/discussion", s.partialDiscussion)

	if s.metricsHandler != nil && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.metricsHandler)
	}

	return s.withLogging(mux)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting dashboard server", slog.String("addr", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.unsubscribe()

		// Close all SSE clients
		s.sseMu.Lock()
		for ch := range s.sseClients {
			close(ch)
			delete(s.sseClients, ch)
		}
		s.sseMu.Unlock()
	})

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Broadcast sends an SSE event with no payload to all clients.
func (s *Server) Broadcast(event string) {
	s.publish(studyhub.Event{Type: event})
}

func (s *Server) publish(e studyhub.Event) {
	s.sseMu.RLock()
	defer s.sseMu.RUnlock()

	for ch := range s.sseClients {
		select {
		case ch <- e:
		default:
			// Client too slow, skip
		}
	}
}

// statusWriter captures the response code for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withLogging wraps a handler with request logging and timing.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		d := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.recorder.ObserveHTTPRequest(route, sw.status, d)
		s.logger.Debug("HTTP request",
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(sw.status),
			logfields.DurationMS(float64(d.Microseconds())/1000))
	})
}

// render executes a template.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template error", slog.String("template", name), logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
