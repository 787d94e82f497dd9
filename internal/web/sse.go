package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/madhatter5501/StudyHub"
)

// handleSSE handles Server-Sent Events for real-time updates.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Create channel for this client
	messageChan := make(chan studyhub.Event, 16)

	s.sseMu.Lock()
	s.sseClients[messageChan] = true
	s.sseMu.Unlock()

	// Shutdown may already have closed the channel.
	defer func() {
		s.sseMu.Lock()
		if s.sseClients[messageChan] {
			delete(s.sseClients, messageChan)
			close(messageChan)
		}
		s.sseMu.Unlock()
	}()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				data = []byte(fmt.Sprintf("{\"type\":%q}", msg.Type))
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
			flusher.Flush()
		}
	}
}
