package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/dukerupert/prometna/internal/middleware"
)

// HandleWebSocket returns an HTTP handler that upgrades connections to WebSocket
// and runs them as Hub clients. The device comes from ?device= or the device middleware.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.URL.Query().Get("device")
		if deviceID == "" {
			deviceID = middleware.DeviceID(r.Context())
		}
		if _, err := uuid.Parse(deviceID); err != nil {
			http.Error(w, "invalid device id", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Pages may be served from a different origin than the API
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, deviceID)
		client.Run(r.Context())
	}
}
