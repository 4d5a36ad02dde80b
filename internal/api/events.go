package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// handleEvents handles GET /events: one server-sent event per speak
// message, plus a comment line as keepalive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	messages, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.Info("event stream opened", "remote_addr", r.RemoteAddr)

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("event stream closed", "remote_addr", r.RemoteAddr)
			return
		case msg, ok := <-messages:
			if !ok {
				s.logger.Warn("event stream dropped by hub", "remote_addr", r.RemoteAddr)
				return
			}
			if err := writeEvent(w, msg.Text); err != nil {
				s.logger.Warn("event write failed", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes text as one event, one data line per text line.
func writeEvent(w io.Writer, text string) error {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := fmt.Fprint(w, b.String())
	return err
}
