package websocket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const pageDevice = "6f1c2a8e-4b1d-4c3e-9a57-2d0e8b7f1a10"

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleWebSocketDeliversToDevice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	srv := httptest.NewServer(HandleWebSocket(hub, logger))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?device=" + pageDevice
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	waitForClients(t, hub, 1)

	if n := hub.SendTo(pageDevice, NewNotification("Testna Obavijest", "Ako vidite ovo, obavijesti rade ispravno!", "./icon.png")); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	hub.Broadcast(NewAnnouncement("Obavijest", "Sutra nema nastave."))

	var first, second Message
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &second); err != nil {
		t.Fatalf("read announcement: %v", err)
	}
	if first.Type != TypeNotification || first.Title != "Testna Obavijest" || first.Icon != "./icon.png" {
		t.Errorf("first = %+v", first)
	}
	if second.Type != TypeAnnouncement || second.Body != "Sutra nema nastave." {
		t.Errorf("second = %+v", second)
	}

	conn.Close(ws.StatusNormalClosure, "")
	waitForClients(t, hub, 0)
}

func TestHandleWebSocketRejectsInvalidDevice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)

	req := httptest.NewRequest(http.MethodGet, "/ws?device=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	HandleWebSocket(hub, logger)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("rejected request must not register a client")
	}
}
