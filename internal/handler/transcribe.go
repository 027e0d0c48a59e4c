package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/prometna/internal/report"
)

// transcriptEvent is sent to the page while dictating.
type transcriptEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// controlEvent is sent by the page alongside binary audio frames.
type controlEvent struct {
	Type string `json:"type"`
}

type TranscribeHandler struct {
	dial   report.Dialer
	logger *slog.Logger
}

func NewTranscribeHandler(dial report.Dialer, logger *slog.Logger) *TranscribeHandler {
	return &TranscribeHandler{dial: dial, logger: logger}
}

// Relay handles GET /api/report/transcribe?description=. The page streams
// 16 kHz mono Float32Array frames as binary messages and may send
// {"type":"stop"} or {"type":"mic_error"}. The server answers with
// transcript fragments, a stop request for the microphone, and a final
// "done" carrying the full description.
func (h *TranscribeHandler) Relay(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger.Warn("transcribe accept", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	send := func(ev transcriptEvent) {
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			h.logger.Debug("transcribe write", "error", err)
		}
	}

	tr := report.NewTranscriber(r.URL.Query().Get("description"), report.TranscriberHooks{
		OnText:    func(s string) { send(transcriptEvent{Type: "transcript", Text: s}) },
		StopAudio: func() { send(transcriptEvent{Type: "stop"}) },
	})

	if err := tr.Connect(ctx, h.dial); err != nil {
		h.logger.Warn("transcribe connect", "error", err)
		send(transcriptEvent{Type: "error", Text: report.TranscriptionErrorText})
		send(transcriptEvent{Type: "done", Text: tr.Text()})
		conn.Close(ws.StatusNormalClosure, "")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tr.Run(gctx)
		send(transcriptEvent{Type: "done", Text: tr.Text()})
		conn.Close(ws.StatusNormalClosure, "")
		return nil
	})
	g.Go(func() error {
		defer tr.Stop()
		return h.pumpAudio(gctx, conn, tr)
	})

	if err := g.Wait(); err != nil {
		h.logger.Warn("transcribe relay", "error", err)
	}
}

// pumpAudio forwards audio frames until the page stops or disconnects.
func (h *TranscribeHandler) pumpAudio(ctx context.Context, conn *ws.Conn, tr *report.Transcriber) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if tr.State() == report.TranscriberClosed || errors.Is(err, context.Canceled) || ws.CloseStatus(err) != -1 {
				return nil
			}
			return err
		}

		if typ == ws.MessageText {
			var ev controlEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			switch ev.Type {
			case "stop":
				tr.Stop()
			case "mic_error":
				tr.HandleMicrophoneError()
			}
			continue
		}

		samples, err := report.DecodeFloat32LE(data)
		if err != nil {
			h.logger.Debug("drop audio frame", "error", err)
			continue
		}
		if err := tr.SendFrame(ctx, samples); err != nil {
			tr.HandleError(err)
		}
	}
}
