package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// PCMMIMEType is the only audio format Live transcription accepts from us.
const PCMMIMEType = "audio/pcm;rate=16000"

// ErrLiveClosed is returned by Receive after the server or caller closed the session.
var ErrLiveClosed = errors.New("live session closed")

// Blob is a base64 media payload.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// LiveConfig selects what a Live session reports back.
type LiveConfig struct {
	// TranscribeInput asks the server to transcribe the audio we send.
	TranscribeInput bool
}

// LiveMessage is the part of a server message callers care about.
type LiveMessage struct {
	SetupComplete      bool
	InputTranscription string
	TurnComplete       bool
	GoAway             bool
}

type liveSetup struct {
	Setup struct {
		Model              string    `json:"model"`
		GenerationConfig   liveGen   `json:"generationConfig"`
		InputTranscription *struct{} `json:"inputAudioTranscription,omitempty"`
	} `json:"setup"`
}

type liveGen struct {
	ResponseModalities []string `json:"responseModalities"`
}

type liveRealtimeInput struct {
	RealtimeInput struct {
		Audio Blob `json:"audio"`
	} `json:"realtimeInput"`
}

type liveServerMessage struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ServerContent *struct {
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription,omitempty"`
		TurnComplete bool `json:"turnComplete,omitempty"`
	} `json:"serverContent,omitempty"`
	GoAway *struct{} `json:"goAway,omitempty"`
}

// LiveSession is an open BidiGenerateContent connection.
type LiveSession struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// ConnectLive dials the Live API, sends the setup message, and waits for the
// server to acknowledge it.
func (c *Client) ConnectLive(ctx context.Context, cfg LiveConfig) (*LiveSession, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	u, err := url.Parse(c.liveURL)
	if err != nil {
		return nil, fmt.Errorf("parse live url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial live api: %w", err)
	}
	// Audio replies arrive inline and can be large.
	conn.SetReadLimit(maxResponse)

	s := &LiveSession{conn: conn}

	var setup liveSetup
	setup.Setup.Model = "models/" + c.liveModel
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	if cfg.TranscribeInput {
		setup.Setup.InputTranscription = &struct{}{}
	}
	if err := wsjson.Write(ctx, conn, setup); err != nil {
		s.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	msg, err := s.Receive(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("await live setup: %w", err)
	}
	if !msg.SetupComplete {
		s.Close()
		return nil, errors.New("live api did not acknowledge setup")
	}
	return s, nil
}

// SendAudio streams one audio blob as realtime input.
func (s *LiveSession) SendAudio(ctx context.Context, b Blob) error {
	var in liveRealtimeInput
	in.RealtimeInput.Audio = b
	if err := wsjson.Write(ctx, s.conn, in); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

// Receive blocks until the next server message. The server may send JSON in
// text or binary frames.
func (s *LiveSession) Receive(ctx context.Context) (LiveMessage, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return LiveMessage{}, ErrLiveClosed
		}
		return LiveMessage{}, fmt.Errorf("read live message: %w", err)
	}

	var raw liveServerMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LiveMessage{}, fmt.Errorf("decode live message: %w", err)
	}

	var msg LiveMessage
	msg.SetupComplete = raw.SetupComplete != nil
	msg.GoAway = raw.GoAway != nil
	if sc := raw.ServerContent; sc != nil {
		msg.TurnComplete = sc.TurnComplete
		if sc.InputTranscription != nil {
			msg.InputTranscription = sc.InputTranscription.Text
		}
	}
	return msg, nil
}

// Close ends the session. It is safe to call more than once.
func (s *LiveSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "")
	})
	return err
}
