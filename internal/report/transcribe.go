package report

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dukerupert/prometna/internal/ai"
)

const (
	TranscriptionErrorText = "\n[Greška prilikom transkripcije]"
	MicrophoneErrorText    = "\n[Nije moguće pristupiti mikrofonu.]"
)

// TranscriberState is the lifecycle of one dictation.
type TranscriberState int

const (
	TranscriberIdle TranscriberState = iota
	TranscriberConnecting
	TranscriberOpen
	TranscriberClosed
)

func (s TranscriberState) String() string {
	switch s {
	case TranscriberIdle:
		return "idle"
	case TranscriberConnecting:
		return "connecting"
	case TranscriberOpen:
		return "open"
	default:
		return "closed"
	}
}

// LiveSession is the remote transcription session.
type LiveSession interface {
	SendAudio(ctx context.Context, b ai.Blob) error
	Receive(ctx context.Context) (ai.LiveMessage, error)
	Close() error
}

// Dialer opens a LiveSession.
type Dialer func(ctx context.Context) (LiveSession, error)

// TranscriberHooks connect the transcriber to the audio source and the page.
// Any hook may be nil.
type TranscriberHooks struct {
	// OnText receives every fragment appended to the transcript.
	OnText func(fragment string)
	// StopAudio releases the microphone.
	StopAudio func()
	// DisconnectEncoder detaches the sample encoder from the audio graph.
	DisconnectEncoder func()
}

// Transcriber turns dictated audio into description text. Stop, errors, and
// remote close all converge on one idempotent teardown.
type Transcriber struct {
	hooks TranscriberHooks

	mu      sync.Mutex
	state   TranscriberState
	text    strings.Builder
	session LiveSession

	closeSession sync.Once
	stopAudio    sync.Once
	disconnect   sync.Once
}

// NewTranscriber starts from the current description. Dictation is appended
// after a separating space when the description is not blank.
func NewTranscriber(description string, hooks TranscriberHooks) *Transcriber {
	t := &Transcriber{hooks: hooks}
	if strings.TrimSpace(description) != "" {
		t.text.WriteString(description + " ")
	}
	return t
}

func (t *Transcriber) State() TranscriberState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Text returns the description including everything dictated so far.
func (t *Transcriber) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text.String()
}

// Connect moves idle to connecting and dials the remote session.
func (t *Transcriber) Connect(ctx context.Context, dial Dialer) error {
	t.mu.Lock()
	if t.state != TranscriberIdle {
		t.mu.Unlock()
		return errors.New("transcriber already started")
	}
	t.state = TranscriberConnecting
	t.mu.Unlock()

	sess, err := dial(ctx)
	if err != nil {
		t.HandleError(err)
		return err
	}
	t.HandleOpen(sess)
	return nil
}

// HandleOpen records the established session. A session that opens after
// Stop is closed immediately.
func (t *Transcriber) HandleOpen(sess LiveSession) {
	t.mu.Lock()
	if t.state != TranscriberConnecting {
		t.mu.Unlock()
		sess.Close()
		return
	}
	t.session = sess
	t.state = TranscriberOpen
	t.mu.Unlock()
}

// HandleMessage appends any transcription in msg.
func (t *Transcriber) HandleMessage(msg ai.LiveMessage) {
	if msg.InputTranscription != "" {
		t.appendText(msg.InputTranscription, TranscriberOpen)
	}
	if msg.GoAway {
		t.Stop()
	}
}

// HandleError notes the failure in the transcript and stops.
func (t *Transcriber) HandleError(err error) {
	t.appendText(TranscriptionErrorText, TranscriberConnecting, TranscriberOpen)
	t.Stop()
}

// HandleMicrophoneError notes that audio capture could not start and stops.
func (t *Transcriber) HandleMicrophoneError() {
	t.appendText(MicrophoneErrorText, TranscriberIdle, TranscriberConnecting, TranscriberOpen)
	t.Stop()
}

// HandleClose reacts to the remote side closing.
func (t *Transcriber) HandleClose() {
	t.Stop()
}

// SendFrame encodes samples and forwards them while the session is open.
// Frames outside the open state are dropped.
func (t *Transcriber) SendFrame(ctx context.Context, samples []float32) error {
	t.mu.Lock()
	sess := t.session
	open := t.state == TranscriberOpen
	t.mu.Unlock()
	if !open || len(samples) == 0 {
		return nil
	}
	return sess.SendAudio(ctx, PCMBlob(samples))
}

// Run receives from the open session until it ends, dispatching each event.
func (t *Transcriber) Run(ctx context.Context) {
	t.mu.Lock()
	sess := t.session
	t.mu.Unlock()
	if sess == nil {
		return
	}

	for {
		msg, err := sess.Receive(ctx)
		if err != nil {
			if errors.Is(err, ai.ErrLiveClosed) || ctx.Err() != nil || t.State() == TranscriberClosed {
				t.HandleClose()
			} else {
				t.HandleError(err)
			}
			return
		}
		t.HandleMessage(msg)
		if t.State() == TranscriberClosed {
			return
		}
	}
}

// Stop tears everything down. Each resource is released at most once no
// matter how many paths reach here.
func (t *Transcriber) Stop() {
	t.mu.Lock()
	t.state = TranscriberClosed
	sess := t.session
	t.mu.Unlock()

	if sess != nil {
		t.closeSession.Do(func() { sess.Close() })
	}
	t.stopAudio.Do(func() {
		if t.hooks.StopAudio != nil {
			t.hooks.StopAudio()
		}
	})
	t.disconnect.Do(func() {
		if t.hooks.DisconnectEncoder != nil {
			t.hooks.DisconnectEncoder()
		}
	})
}

// appendText adds s when the transcriber is in one of the allowed states.
func (t *Transcriber) appendText(s string, allowed ...TranscriberState) bool {
	t.mu.Lock()
	ok := false
	for _, st := range allowed {
		if t.state == st {
			ok = true
			break
		}
	}
	if ok {
		t.text.WriteString(s)
	}
	t.mu.Unlock()

	if ok && t.hooks.OnText != nil {
		t.hooks.OnText(s)
	}
	return ok
}
