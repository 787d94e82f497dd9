package web

import (
	"net/http"

	"github.com/madhatter5501/StudyHub/internal/logfields"
)

// partialStreak returns just the streak card for htmx refresh.
func (s *Server) partialStreak(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.Streak(r.Context())
	if err != nil {
		s.logger.Error("Failed to get streak", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "partials/streak.html", view)
}

// partialTodos returns the to-do list with its progress bar.
func (s *Server) partialTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.app.Todos().List(r.Context())
	if err != nil {
		s.logger.Error("Failed to get todos", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	progress, _ := s.app.Todos().Progress(r.Context())

	data := map[string]any{
		"Todos":    todos,
		"Progress": progress,
	}
	s.render(w, "partials/todos.html", data)
}

// partialDiscussion returns the discussion thread, newest first.
func (s *Server) partialDiscussion(w http.ResponseWriter, r *http.Request) {
	posts, err := s.app.Discussion().List(r.Context())
	if err != nil {
		s.logger.Error("Failed to get posts", logfields.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "partials/discussion.html", posts)
}
