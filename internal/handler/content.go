package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/prometna/internal/ai"
	"github.com/dukerupert/prometna/internal/content"
	"github.com/dukerupert/prometna/internal/model"
	"github.com/dukerupert/prometna/internal/store"
)

type ContentHandler struct {
	contentStore *store.ContentStore
	service      *content.Service
	logger       *slog.Logger
}

func NewContentHandler(cs *store.ContentStore, svc *content.Service, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{contentStore: cs, service: svc, logger: logger}
}

type calendarEventResponse struct {
	model.CalendarEvent
	Date string `json:"date"`
}

// Calendar handles GET /api/content/calendar
func (h *ContentHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	events, err := h.contentStore.ListCalendarEvents()
	if err != nil {
		h.logger.Error("list calendar events", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	out := make([]calendarEventResponse, len(events))
	for i, e := range events {
		out[i] = calendarEventResponse{CalendarEvent: e, Date: e.DateLabel()}
	}
	writeJSON(w, http.StatusOK, out)
}

// Documents handles GET /api/content/documents
func (h *ContentHandler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.contentStore.ListDocuments()
	if err != nil {
		h.logger.Error("list documents", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list documents"})
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// Contact handles GET /api/content/contact
func (h *ContentHandler) Contact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, content.Contact)
}

type newsSearchRequest struct {
	Query string `json:"query"`
}

// SearchNews handles POST /api/content/news/search
func (h *ContentHandler) SearchNews(w http.ResponseWriter, r *http.Request) {
	var req newsSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	answer, err := h.service.SearchNews(r.Context(), req.Query)
	if errors.Is(err, content.ErrEmptyQuery) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// Nearby handles GET /api/content/nearby?lat=&lng=
func (h *ContentHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": content.LocationUnavailable})
		return
	}

	answer, err := h.service.Nearby(r.Context(), ai.LatLng{Latitude: lat, Longitude: lng})
	if errors.Is(err, content.ErrInvalidLocation) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": content.LocationUnavailable})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}
