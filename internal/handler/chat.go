package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/prometna/internal/chat"
	"github.com/dukerupert/prometna/internal/middleware"
)

type ChatHandler struct {
	manager *chat.Manager
	logger  *slog.Logger
}

func NewChatHandler(m *chat.Manager, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{manager: m, logger: logger}
}

type chatSessionResponse struct {
	ID       string         `json:"id"`
	Messages []chat.Message `json:"messages"`
	Busy     bool           `json:"busy"`
}

// Open handles POST /api/chat/sessions
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, s := h.manager.Open(middleware.DeviceID(r.Context()))
	writeJSON(w, http.StatusCreated, chatSessionResponse{ID: id, Messages: s.Messages()})
}

// Get handles GET /api/chat/sessions/{id}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s, ok := h.manager.Get(id, middleware.DeviceID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat session not found"})
		return
	}
	writeJSON(w, http.StatusOK, chatSessionResponse{ID: id, Messages: s.Messages(), Busy: s.Busy()})
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// Send handles POST /api/chat/sessions/{id}/messages. Accepted messages are
// answered with an NDJSON stream of transcript updates.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(r.PathValue("id"), middleware.DeviceID(r.Context()))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat session not found"})
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	streaming := false
	observe := func(u chat.Update) {
		if !streaming {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			streaming = true
		}
		if err := enc.Encode(u); err != nil {
			return
		}
		rc.Flush()
	}

	err := s.Send(r.Context(), req.Text, observe)
	if streaming {
		// Failures were already delivered as an error update.
		return
	}
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
	case errors.Is(err, chat.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a reply is already streaming"})
	case errors.Is(err, chat.ErrClosed):
		writeJSON(w, http.StatusGone, map[string]string{"error": "chat session is closed"})
	case err != nil:
		h.logger.Error("chat send", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send message"})
	}
}

// Close handles DELETE /api/chat/sessions/{id}
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Close(r.PathValue("id"), middleware.DeviceID(r.Context())) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
