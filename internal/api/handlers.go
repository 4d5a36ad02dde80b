package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgnsrekt/speakeasy/internal/hub"
	"github.com/dgnsrekt/speakeasy/internal/tts"
)

// SpeakRequest is the request body for /api/speak and /api/tts.
type SpeakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// PauseState is the request and response body for /api/pause.
type PauseState struct {
	Paused *bool `json:"paused"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the response body for /v1/healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	Paused      bool   `json:"paused"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// handleHealthz handles GET /v1/healthz requests.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Subscribers: s.hub.Subscribers(),
		Paused:      s.hub.Paused(),
	})
}

// decodeText reads and validates a SpeakRequest, writing the error
// response itself when it returns false.
func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (SpeakRequest, bool) {
	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Warn("failed to decode request", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return req, false
	}

	if len(req.Text) > s.cfg.MaxTextLength {
		s.logger.Warn("text exceeds max length", "length", len(req.Text), "max", s.cfg.MaxTextLength)
		writeError(w, http.StatusBadRequest, "text exceeds maximum length")
		return req, false
	}

	return req, true
}

// handleSpeak handles POST /api/speak requests.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	delivered, err := s.hub.Broadcast(hub.Message{Text: req.Text, Voice: req.Voice})
	if err != nil {
		if errors.Is(err, hub.ErrBacklogFull) {
			writeError(w, http.StatusServiceUnavailable, "no listeners and backlog is full")
			return
		}
		s.logger.Error("failed to broadcast", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to broadcast")
		return
	}

	s.logger.Info("speak request accepted", "text_length", len(req.Text), "voice", req.Voice, "delivered", delivered)
	w.WriteHeader(http.StatusNoContent)
}

// handleSetPause handles POST /api/pause requests.
func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	var req PauseState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Paused == nil {
		writeError(w, http.StatusBadRequest, "paused is required")
		return
	}

	paused := s.hub.SetPaused(*req.Paused)
	writeJSON(w, http.StatusOK, PauseState{Paused: &paused})
}

// handleGetPause handles GET /api/pause requests.
func (s *Server) handleGetPause(w http.ResponseWriter, r *http.Request) {
	paused := s.hub.Paused()
	writeJSON(w, http.StatusOK, PauseState{Paused: &paused})
}

// handleQueue handles GET /api/queue requests. Items without a voice are
// reported as bare strings.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	backlog := s.hub.Backlog()
	items := make([]any, 0, len(backlog))
	for _, msg := range backlog {
		if msg.Voice == "" {
			items = append(items, msg.Text)
			continue
		}
		items = append(items, msg)
	}
	writeJSON(w, http.StatusOK, items)
}

// handleTTS handles POST /api/tts requests.
func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = s.cfg.DefaultVoice
	}

	if !s.synthesize(w, r, req.Text, voice) {
		return
	}
	s.hub.RecordHistory(req.Text)
}

// handlePreview handles GET /api/preview requests.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	voice := r.URL.Query().Get("voice")
	if voice == "" {
		voice = s.cfg.DefaultVoice
	}
	s.synthesize(w, r, PreviewText, voice)
}

func (s *Server) synthesize(w http.ResponseWriter, r *http.Request, text, voice string) bool {
	result, err := s.synth.Synthesize(r.Context(), text, voice)
	if err != nil {
		s.logger.Error("synthesis failed", "voice", voice, "error", err)
		writeError(w, http.StatusBadGateway, "synthesis failed")
		return false
	}

	s.logger.Debug("synthesis complete", "voice", voice, "bytes", len(result.Data), "content_type", result.ContentType)

	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
	return true
}

// handleVoices handles GET /api/voices requests. Engines that fail to list
// are skipped as long as one engine answered.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.synth.Voices(r.Context())
	if err != nil {
		if len(voices) == 0 {
			s.logger.Error("failed to list voices", "error", err)
			writeError(w, http.StatusBadGateway, "could not list voices")
			return
		}
		s.logger.Warn("some voices unavailable", "error", err)
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

// handleHistory handles GET /api/history requests.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.History())
}
