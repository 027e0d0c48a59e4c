package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func sseEvent(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}}}},
	})
	return fmt.Sprintf("data: %s\r\n\r\n", b)
}

func collect(t *testing.T, ch <-chan Chunk) ([]string, error) {
	t.Helper()
	var parts []string
	for c := range ch {
		if c.Err != nil {
			return parts, c.Err
		}
		parts = append(parts, c.Text)
	}
	return parts, nil
}

func TestSendMessageStream(t *testing.T) {
	var requests []generateRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("url = %s", r.URL)
		}
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests = append(requests, req)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range []string{"Po", "zdrav", "!"} {
			fmt.Fprint(w, sseEvent(frag))
			w.(http.Flusher).Flush()
		}
	})

	chat := c.StartChat("Ti si asistent.")
	ch, err := chat.SendMessageStream(context.Background(), "Bok")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	parts, err := collect(t, ch)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got := strings.Join(parts, "|"); got != "Po|zdrav|!" {
		t.Errorf("fragments = %q, want Po|zdrav|!", got)
	}
	if chat.History() != 2 {
		t.Errorf("history = %d, want 2", chat.History())
	}

	ch, _ = chat.SendMessageStream(context.Background(), "Hvala")
	collect(t, ch)

	second := requests[1]
	if len(second.Contents) != 3 {
		t.Fatalf("second request contents = %d, want 3", len(second.Contents))
	}
	if second.Contents[1].Role != "model" || second.Contents[1].Parts[0].Text != "Pozdrav!" {
		t.Errorf("model turn = %+v", second.Contents[1])
	}
	if second.SystemInstruction == nil || second.SystemInstruction.Parts[0].Text != "Ti si asistent." {
		t.Errorf("system instruction = %+v", second.SystemInstruction)
	}
}

func TestSendMessageStreamErrorEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseEvent("Djelomično"))
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"quota\"}}\n\n")
	})

	chat := c.StartChat("")
	ch, err := chat.SendMessageStream(context.Background(), "x")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	parts, err := collect(t, ch)
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Fatalf("err = %v, want quota error", err)
	}
	if len(parts) != 1 {
		t.Errorf("fragments before error = %v", parts)
	}
	if chat.History() != 0 {
		t.Errorf("failed exchange joined history: %d", chat.History())
	}
}

func TestSendMessageStreamHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	})

	_, err := c.StartChat("").SendMessageStream(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 {
		t.Fatalf("err = %v, want 400 APIError", err)
	}
}

func TestReadSSE(t *testing.T) {
	in := ": comment\n\ndata: one\n\nevent: x\ndata: two\ndata: lines\n\ndata: tail"
	var got []string
	err := readSSE(strings.NewReader(in), func(b []byte) error {
		got = append(got, string(b))
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"one", "two\nlines", "tail"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("events = %q, want %q", got, want)
	}
}
