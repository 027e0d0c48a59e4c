package handler

import (
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"github.com/dukerupert/prometna/internal/middleware"
	"github.com/dukerupert/prometna/internal/push"
	"github.com/dukerupert/prometna/internal/store"
)

//go:embed templates/service-worker.js.tmpl
var templateFS embed.FS

var serviceWorker = template.Must(template.ParseFS(templateFS, "templates/service-worker.js.tmpl"))

type PushHandler struct {
	pushStore   *store.PushStore
	service     *push.Service
	notifier    push.Notifier
	broadcaster *push.Broadcaster
	logger      *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, n push.Notifier, b *push.Broadcaster, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, notifier: n, broadcaster: b, logger: logger}
}

// pushResponse is the manager status plus the alert to show, if any.
type pushResponse struct {
	push.Status
	Alert string `json:"alert,omitempty"`
}

func (h *PushHandler) device(r *http.Request) (*push.DevicePlatform, *push.Manager) {
	deviceID := middleware.DeviceID(r.Context())
	platform := push.NewDevicePlatform(h.pushStore, h.notifier, deviceID)
	mgr := push.NewManager(platform, h.service.VAPIDPublicKey(), h.logger.With("device", deviceID))
	return platform, mgr
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// Status handles GET /api/push/status. The page may pass ?supported= and
// ?permission= to report what it currently observes.
func (h *PushHandler) Status(w http.ResponseWriter, r *http.Request) {
	platform, mgr := h.device(r)

	q := r.URL.Query()
	if q.Has("supported") || q.Has("permission") {
		supported := true
		if v := q.Get("supported"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supported flag"})
				return
			}
			supported = b
		}
		report := push.DeviceReport{Supported: supported, Permission: push.ParsePermission(q.Get("permission")), UserAgent: r.UserAgent()}
		if err := platform.Report(report); err != nil {
			h.logger.Error("record device report", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record device state"})
			return
		}
	}

	st := mgr.CheckStatus(r.Context())
	resp := pushResponse{Status: st}
	if st.State == push.StateUnsupported {
		resp.Alert = push.UnsupportedAlert
	}
	writeJSON(w, http.StatusOK, resp)
}

// Subscribe handles POST /api/push/subscribe. The body is the device report
// taken right after pushManager.subscribe resolved or was rejected.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var report push.DeviceReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	report.UserAgent = r.UserAgent()

	platform, mgr := h.device(r)
	if err := platform.Report(report); err != nil {
		h.logger.Error("record device report", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record device state"})
		return
	}

	st, err := mgr.Subscribe(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, pushResponse{Status: st})
	case errors.Is(err, push.ErrUnsupported):
		writeJSON(w, http.StatusUnprocessableEntity, pushResponse{Status: st, Alert: push.UnsupportedAlert})
	case errors.Is(err, push.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, pushResponse{Status: st, Alert: push.DeniedAlert})
	case errors.Is(err, push.ErrPromptDismissed):
		writeJSON(w, http.StatusOK, pushResponse{Status: st})
	default:
		h.logger.Error("push subscribe", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update subscription"})
	}
}

// Unsubscribe handles DELETE /api/push/subscription
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	_, mgr := h.device(r)
	st, err := mgr.Unsubscribe(r.Context())
	if err != nil {
		h.logger.Error("push unsubscribe", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete subscription"})
		return
	}
	writeJSON(w, http.StatusOK, pushResponse{Status: st})
}

// TestNotification handles POST /api/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	_, mgr := h.device(r)
	err := mgr.SendTestNotification(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	case errors.Is(err, push.ErrNotSubscribed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not subscribed", "alert": push.NotSubscribedAlert})
	case errors.Is(err, push.ErrDeviceOffline):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no open page for this device"})
	default:
		h.logger.Error("test notification", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send notification"})
	}
}

type broadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Broadcast handles POST /api/push/broadcast
func (h *PushHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
		return
	}

	res, err := h.broadcaster.Announce(r.Context(), push.Payload{
		Title: req.Title,
		Body:  req.Body,
		URL:   req.URL,
		Tag:   "announcement",
	})
	if err != nil {
		h.logger.Error("broadcast announcement", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send announcement"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ServiceWorker handles GET /service-worker.js
func (h *PushHandler) ServiceWorker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Service-Worker-Allowed", "/")
	w.Header().Set("Cache-Control", "no-cache")
	data := map[string]string{
		"Icon":  push.NotificationIcon,
		"Badge": push.NotificationBadge,
	}
	if err := serviceWorker.Execute(w, data); err != nil {
		h.logger.Error("render service worker", "error", err)
	}
}
