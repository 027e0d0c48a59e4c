package report

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukerupert/prometna/internal/ai"
)

type fakeLive struct {
	mu       sync.Mutex
	messages chan ai.LiveMessage
	errs     chan error
	sent     []ai.Blob
	closes   int
}

func newFakeLive() *fakeLive {
	return &fakeLive{messages: make(chan ai.LiveMessage, 8), errs: make(chan error, 1)}
}

func (f *fakeLive) SendAudio(ctx context.Context, b ai.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, b)
	return nil
}

func (f *fakeLive) Receive(ctx context.Context) (ai.LiveMessage, error) {
	// Queued messages are delivered before any queued error.
	select {
	case m := <-f.messages:
		return m, nil
	default:
	}
	select {
	case m := <-f.messages:
		return m, nil
	case err := <-f.errs:
		return ai.LiveMessage{}, err
	case <-ctx.Done():
		return ai.LiveMessage{}, ctx.Err()
	}
}

func (f *fakeLive) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type hookCounts struct {
	mu         sync.Mutex
	fragments  []string
	stops      int
	disconnect int
}

func (h *hookCounts) hooks() TranscriberHooks {
	return TranscriberHooks{
		OnText: func(s string) {
			h.mu.Lock()
			h.fragments = append(h.fragments, s)
			h.mu.Unlock()
		},
		StopAudio: func() {
			h.mu.Lock()
			h.stops++
			h.mu.Unlock()
		},
		DisconnectEncoder: func() {
			h.mu.Lock()
			h.disconnect++
			h.mu.Unlock()
		},
	}
}

func dialer(f *fakeLive) Dialer {
	return func(ctx context.Context) (LiveSession, error) { return f, nil }
}

func TestTranscriberFlow(t *testing.T) {
	live := newFakeLive()
	var h hookCounts
	tr := NewTranscriber("Klupa", h.hooks())

	if tr.State() != TranscriberIdle {
		t.Fatalf("state = %s, want idle", tr.State())
	}
	if err := tr.SendFrame(context.Background(), []float32{0.1}); err != nil || len(live.sent) != 0 {
		t.Fatal("frames before open must be dropped")
	}

	if err := tr.Connect(context.Background(), dialer(live)); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if tr.State() != TranscriberOpen {
		t.Fatalf("state = %s, want open", tr.State())
	}

	if err := tr.SendFrame(context.Background(), []float32{0, 0.5}); err != nil {
		t.Fatalf("send frame: %v", err)
	}
	if len(live.sent) != 1 || live.sent[0].MIMEType != ai.PCMMIMEType {
		t.Errorf("sent = %+v", live.sent)
	}

	live.messages <- ai.LiveMessage{InputTranscription: "je "}
	live.messages <- ai.LiveMessage{InputTranscription: "slomljena."}
	live.errs <- ai.ErrLiveClosed
	tr.Run(context.Background())

	if got := tr.Text(); got != "Klupa je slomljena." {
		t.Errorf("text = %q", got)
	}
	if tr.State() != TranscriberClosed {
		t.Errorf("state = %s, want closed", tr.State())
	}
	if len(h.fragments) != 2 {
		t.Errorf("fragments = %q", h.fragments)
	}
	if live.closes != 1 || h.stops != 1 || h.disconnect != 1 {
		t.Errorf("closes=%d stops=%d disconnects=%d, want 1 each", live.closes, h.stops, h.disconnect)
	}
}

func TestTranscriberStopIsIdempotent(t *testing.T) {
	live := newFakeLive()
	var h hookCounts
	tr := NewTranscriber("", h.hooks())
	tr.Connect(context.Background(), dialer(live))

	tr.Stop()
	tr.HandleError(errors.New("late error"))
	tr.HandleClose()
	tr.Stop()

	if live.closes != 1 || h.stops != 1 || h.disconnect != 1 {
		t.Errorf("closes=%d stops=%d disconnects=%d, want 1 each", live.closes, h.stops, h.disconnect)
	}
	if tr.Text() != "" {
		t.Errorf("errors after stop must not touch the text, got %q", tr.Text())
	}

	tr.HandleMessage(ai.LiveMessage{InputTranscription: "kasno"})
	if tr.Text() != "" {
		t.Error("fragments after stop must be ignored")
	}
}

func TestTranscriberErrorAppendsMarker(t *testing.T) {
	live := newFakeLive()
	var h hookCounts
	tr := NewTranscriber("Opis", h.hooks())
	tr.Connect(context.Background(), dialer(live))

	live.messages <- ai.LiveMessage{InputTranscription: "dio"}
	live.errs <- errors.New("socket reset")
	tr.Run(context.Background())

	if got := tr.Text(); got != "Opis dio\n[Greška prilikom transkripcije]" {
		t.Errorf("text = %q", got)
	}
	if tr.State() != TranscriberClosed || live.closes != 1 {
		t.Errorf("state = %s, closes = %d", tr.State(), live.closes)
	}
}

func TestTranscriberDialFailure(t *testing.T) {
	var h hookCounts
	tr := NewTranscriber("", h.hooks())

	err := tr.Connect(context.Background(), func(ctx context.Context) (LiveSession, error) {
		return nil, errors.New("no network")
	})
	if err == nil {
		t.Fatal("expected dial error")
	}
	if tr.Text() != "\n[Greška prilikom transkripcije]" || tr.State() != TranscriberClosed {
		t.Errorf("text = %q, state = %s", tr.Text(), tr.State())
	}
	if h.stops != 1 {
		t.Errorf("stops = %d, want 1", h.stops)
	}
	if err := tr.Connect(context.Background(), dialer(newFakeLive())); err == nil {
		t.Error("closed transcriber must not reconnect")
	}
}

func TestTranscriberMicrophoneError(t *testing.T) {
	var h hookCounts
	tr := NewTranscriber("Prozor", h.hooks())
	tr.HandleMicrophoneError()

	if tr.Text() != "Prozor \n[Nije moguće pristupiti mikrofonu.]" {
		t.Errorf("text = %q", tr.Text())
	}
	if tr.State() != TranscriberClosed {
		t.Errorf("state = %s", tr.State())
	}
}

func TestTranscriberOpenAfterStop(t *testing.T) {
	live := newFakeLive()
	tr := NewTranscriber("", TranscriberHooks{})
	tr.Stop()
	tr.HandleOpen(live)
	if live.closes != 1 {
		t.Errorf("late session closes = %d, want 1", live.closes)
	}
}
